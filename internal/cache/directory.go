package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/fjod/cart-api/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CachedDirectory is a read-through cache in front of a user directory.
// Users returned by FindUser carry no password hash; lookups by email always
// go to the underlying directory.
type CachedDirectory struct {
	repository.UserDirectory
	cache  UserCache
	logger *slog.Logger
	sfg    singleflight.Group
}

func NewCachedDirectory(dir repository.UserDirectory, cache UserCache, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{
		UserDirectory: dir,
		cache:         cache,
		logger:        logger,
	}
}

func (d *CachedDirectory) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	v, err, _ := d.sfg.Do(strconv.FormatInt(id, 10), func() (any, error) {
		user, err := d.cache.Get(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			d.logger.WarnContext(ctx, "user cache get failed", "user_id", id, "error", err)
		}

		user, err = d.UserDirectory.FindUser(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := d.cache.Set(ctx, user); err != nil {
			d.logger.WarnContext(ctx, "user cache set failed", "user_id", id, "error", err)
		}
		return &domain.User{ID: user.ID, Name: user.Name, Email: user.Email}, nil
	})
	if err != nil {
		return nil, err
	}

	// callers must not share the singleflight result
	u := *v.(*domain.User)
	return &u, nil
}

func (d *CachedDirectory) CreateUser(ctx context.Context, user *domain.User) error {
	if err := d.UserDirectory.CreateUser(ctx, user); err != nil {
		return err
	}
	if err := d.cache.Delete(ctx, user.ID); err != nil {
		d.logger.WarnContext(ctx, "user cache invalidate failed", "user_id", user.ID, "error", err)
	}
	return nil
}
