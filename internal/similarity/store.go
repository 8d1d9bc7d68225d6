package similarity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "care-matcher:similarity:"

// Store is a second-level cache for pair similarities shared between processes.
type Store interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, score float64) error
}

// RedisConfig describes the Redis connection used by RedisStore.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps pair similarities in Redis without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient creates a Redis client for the similarity store.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisStore wraps an existing client. An empty prefix uses the default one.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (float64, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get: %w", err)
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached similarity %q: %w", val, err)
	}
	return score, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, score float64) error {
	if err := s.client.Set(ctx, s.prefix+key, strconv.FormatFloat(score, 'g', -1, 64), 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
