package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/cart-api/internal/domain"
)

const userColumns = `id, name, email, password_hash`

func (r *Repository) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)))
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("query email exists: %w", err)
	}
	return exists, nil
}

// CreateUser inserts the user with a normalized email and sets user.ID.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`

	user.Email = domain.NormalizeEmail(user.Email)
	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
