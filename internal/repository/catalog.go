package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/lib/pq"
)

func (r *Repository) FindItem(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT id, name, price FROM items WHERE id = $1`

	item := &domain.Item{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.Name, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item by id: %w", err)
	}
	return item, nil
}

func (r *Repository) FindItems(ctx context.Context, ids []int64) ([]*domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, price FROM items WHERE id = ANY($1) ORDER BY id`
	return r.queryItems(ctx, query, pq.Array(ids))
}

func (r *Repository) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return r.queryItems(ctx, `SELECT id, name, price FROM items ORDER BY id`)
}

func (r *Repository) queryItems(ctx context.Context, query string, args ...any) ([]*domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item := &domain.Item{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
