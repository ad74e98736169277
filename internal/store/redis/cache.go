package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"strategy-backtester/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	keyPrefix         = "backtest:result:"
	defaultTTL        = 10 * time.Minute
	breakerMaxFails   = 5
	breakerResetAfter = 30 * time.Second
)

// Config configures the result cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores serialized backtest results keyed by content hash.
// Calls go through a circuit breaker so a dead Redis costs one fast
// rejection per run instead of a dial timeout.
type Cache struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker exposes the circuit breaker so callers can hook state changes.
func (c *Cache) Breaker() *CircuitBreaker { return c.breaker }

// New connects to Redis and pings it.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses the default.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		breaker: NewCircuitBreaker(breakerMaxFails, breakerResetAfter),
	}
}

// Key returns the Redis key for a content hash.
func Key(hash string) string { return keyPrefix + hash }

// Get fetches a cached result. A missing key is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, hash string) (*model.BacktestResult, bool, error) {
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, Key(hash)).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	var res model.BacktestResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &res, true, nil
}

// Set stores res under hash with the configured TTL.
func (c *Cache) Set(ctx context.Context, hash string, res *model.BacktestResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, Key(hash), data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
