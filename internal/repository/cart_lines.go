package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/cart-api/internal/domain"
)

// activeLine is the SQL form of domain.CartLine.IsActive.
const activeLine = `(snapshot_tag IS NULL OR snapshot_tag = '')`

const lineColumns = `id, user_id, item_id, quantity, created_at, snapshot_tag`

func (r *Repository) FindActiveLine(ctx context.Context, userID, itemID int64) (*domain.CartLine, error) {
	query := `SELECT ` + lineColumns + ` FROM cart_lines
	          WHERE user_id = $1 AND item_id = $2 AND ` + activeLine + `
	          ORDER BY id LIMIT 1`

	rows, err := r.db.QueryContext(ctx, query, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("query active line: %w", err)
	}
	lines, err := scanLines(rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrLineNotFound
	}
	return lines[0], nil
}

func (r *Repository) ListActiveLines(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	query := `SELECT ` + lineColumns + ` FROM cart_lines
	          WHERE user_id = $1 AND ` + activeLine + `
	          ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query active lines: %w", err)
	}
	return scanLines(rows)
}

func (r *Repository) InsertLine(ctx context.Context, line *domain.CartLine) error {
	return insertLine(ctx, r.db, line)
}

// IncrementQuantity atomically adds delta to an active line. It returns
// ErrLineNotFound when the line no longer exists or has been archived.
func (r *Repository) IncrementQuantity(ctx context.Context, lineID int64, delta int) error {
	query := `UPDATE cart_lines SET quantity = quantity + $1
	          WHERE id = $2 AND ` + activeLine

	res, err := r.db.ExecContext(ctx, query, delta, lineID)
	if err != nil {
		return fmt.Errorf("increment line quantity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment line quantity: %w", err)
	}
	if n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *Repository) TagActiveLines(ctx context.Context, userID int64, tag string) (int64, error) {
	return tagActiveLines(ctx, r.db, userID, tag)
}

// WithTx runs fn in a read-committed transaction. The transaction is committed
// only when fn returns nil and is rolled back on every other exit path.
func (r *Repository) WithTx(ctx context.Context, fn func(tx CartTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	if err := fn(&cartTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type cartTx struct {
	q querier
}

func (t *cartTx) LockUser(ctx context.Context, userID int64) error {
	var id int64
	err := t.q.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (t *cartTx) TagActiveLines(ctx context.Context, userID int64, tag string) (int64, error) {
	return tagActiveLines(ctx, t.q, userID, tag)
}

func (t *cartTx) InsertLine(ctx context.Context, line *domain.CartLine) error {
	return insertLine(ctx, t.q, line)
}

func (t *cartTx) AddOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	return addOutboxEvent(ctx, t.q, event)
}

func insertLine(ctx context.Context, q querier, line *domain.CartLine) error {
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO cart_lines (user_id, item_id, quantity, created_at, snapshot_tag)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := q.QueryRowContext(ctx, query,
		line.UserID,
		line.ItemID,
		line.Quantity,
		line.CreatedAt,
		line.SnapshotTag).Scan(&line.ID)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return ErrActiveLineExists
		case pqForeignKeyViolation:
			return ErrUserNotFound
		}
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func tagActiveLines(ctx context.Context, q querier, userID int64, tag string) (int64, error) {
	query := `UPDATE cart_lines SET snapshot_tag = $1 WHERE user_id = $2 AND ` + activeLine

	res, err := q.ExecContext(ctx, query, tag, userID)
	if err != nil {
		return 0, fmt.Errorf("tag active lines: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("tag active lines: %w", err)
	}
	return n, nil
}

func scanLines(rows *sql.Rows) ([]*domain.CartLine, error) {
	defer rows.Close()

	var lines []*domain.CartLine
	for rows.Next() {
		var (
			line domain.CartLine
			tag  sql.NullString
		)
		if err := rows.Scan(
			&line.ID,
			&line.UserID,
			&line.ItemID,
			&line.Quantity,
			&line.CreatedAt,
			&tag,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if tag.Valid {
			line.SnapshotTag = &tag.String
		}
		lines = append(lines, &line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}
