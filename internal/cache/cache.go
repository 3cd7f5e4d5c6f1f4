package cache

import (
	"context"
	"errors"

	"github.com/fjod/cart-api/internal/domain"
)

// UserCache holds user profiles by id. Password hashes are never cached.
type UserCache interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
