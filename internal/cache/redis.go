package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxJitter = 5 * time.Minute

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

type cachedUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *RedisCache) Get(ctx context.Context, userID int64) (*domain.User, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, fmt.Errorf("unmarshal user failed: %w", err)
	}

	return &domain.User{ID: cu.ID, Name: cu.Name, Email: cu.Email}, nil
}

func (r *RedisCache) Set(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(cachedUser{ID: user.ID, Name: user.Name, Email: user.Email})
	if err != nil {
		return fmt.Errorf("marshal user failed: %w", err)
	}

	ttl := r.baseTTL + rand.N(maxJitter)
	if err := r.client.Set(ctx, cacheKey(user.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
