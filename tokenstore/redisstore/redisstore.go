// Package redisstore keeps credentials in Redis so several local processes of the same
// profile (a CLI and a BFF, say) share one session.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hrauth"

// Store is a tokenstore.Backend over a Redis client.
type Store struct {
	client  *redis.Client
	profile string
}

var _ tokenstore.Backend = (*Store)(nil)

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, profile string) *Store {
	return &Store{client: client, profile: profile}
}

func (s *Store) key(k string) string {
	return keyPrefix + ":" + s.profile + ":" + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", autherrors.ErrNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
