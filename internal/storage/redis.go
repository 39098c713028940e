package storage

import (
	"context"
	"errors"
	"fmt"

	"opsdash/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis layout backend.
type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RedisLayoutStore keeps layouts as JSON strings under
// opsdash:layout:<role>:<scope>, for deployments sharing layouts across
// processes.
type RedisLayoutStore struct {
	client *redis.Client
	prefix string
}

// NewRedisLayoutStore connects to Redis and verifies the connection.
func NewRedisLayoutStore(ctx context.Context, opts RedisOptions) (*RedisLayoutStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisLayoutStore{client: client, prefix: "opsdash:layout:"}, nil
}

func (s *RedisLayoutStore) key(role, scope string) string {
	return s.prefix + role + ":" + scope
}

func (s *RedisLayoutStore) LoadLayout(ctx context.Context, role, scope string) (*domain.Layout, error) {
	raw, err := s.client.Get(ctx, s.key(role, scope)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load layout %s/%s: %w", role, scope, err)
	}
	return decodeLayout(raw)
}

func (s *RedisLayoutStore) SaveLayout(ctx context.Context, role, scope string, l domain.Layout) error {
	raw, err := encodeLayout(l)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(role, scope), raw, 0).Err(); err != nil {
		return fmt.Errorf("save layout %s/%s: %w", role, scope, err)
	}
	return nil
}

func (s *RedisLayoutStore) DeleteLayout(ctx context.Context, role, scope string) error {
	return s.client.Del(ctx, s.key(role, scope)).Err()
}

// Close closes the Redis client.
func (s *RedisLayoutStore) Close() error {
	return s.client.Close()
}
