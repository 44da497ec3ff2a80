package kv

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisConfig defines connection parameters for Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// RedisStore implements Store on top of a go-redis client.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis returns a Redis-backed store based on provided configuration.
func NewRedis(cfg RedisConfig, logger *slog.Logger) *RedisStore {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &RedisStore{
		client: redis.NewClient(opts),
		logger: logger.With("component", "kv_redis"),
	}
}

// Client exposes the underlying go-redis client.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get loads the raw value stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return res, nil
}

// Set stores value under key with no expiry.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetByPrefix walks the keyspace with SCAN and fetches matching values in
// batches via MGET. A key deleted between scan and fetch is skipped.
func (r *RedisStore) GetByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeMatch(prefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		values, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget: %w", err)
		}
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			entries = append(entries, Entry{Key: batch[i], Value: []byte(s)})
		}
	}
	return entries, nil
}

// escapeMatch makes prefix safe for use in a SCAN MATCH pattern, so keys
// containing glob metacharacters are matched literally.
func escapeMatch(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix))
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases Redis resources.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
