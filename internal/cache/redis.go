package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements Provider backed by a Redis or Valkey server.
type RedisProvider struct {
	client *redis.Client
}

// RedisConfig holds connection parameters for the shared cache.
type RedisConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewRedisProvider creates a Provider using the supplied configuration. It performs a ping
// against the target to fail fast when credentials or connectivity are incorrect.
func NewRedisProvider(cfg RedisConfig) (*RedisProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	normaliseDurations(&cfg)

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisProvider{client: client}, nil
}

// NewRedisProviderFromClient wraps an existing client.
func NewRedisProviderFromClient(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return payload, err
}

// Set stores bytes with the provided TTL; zero means no expiry.
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.client.Set(ctx, key, value, ttl).Err()
}

// Del removes a key from the cache.
func (p *RedisProvider) Del(ctx context.Context, key string) error {
	return p.client.Del(ctx, key).Err()
}

// Close releases the connection pool.
func (p *RedisProvider) Close() error { return p.client.Close() }

func normaliseDurations(cfg *RedisConfig) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
}
