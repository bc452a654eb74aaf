package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// RedisStore lets several client processes on one host share the credential.
// The key never expires; Clear is the only way out.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) Get(ctx context.Context) (domain.Credential, error) {
	v, err := r.client.Get(ctx, r.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if v == "" {
		return "", ErrNoCredential
	}
	return domain.Credential(v), nil
}

func (r *RedisStore) Set(ctx context.Context, c domain.Credential) error {
	if c == "" {
		return ErrEmptyCredential
	}
	if err := r.client.Set(ctx, r.key(), c.String(), 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) key() string {
	return fmt.Sprintf("storefront:%s:%s", r.namespace, Key)
}
