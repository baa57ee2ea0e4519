// Package cache holds the shared Redis client and cache-aside helpers for
// group views and user lookups. Every helper is a no-op without a client.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"amor/internal/middleware"
	"amor/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// instrumentHook counts failed commands and wraps each in a client span.
type instrumentHook struct{}

func (instrumentHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (instrumentHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, cmd.Name())
		defer span.End()
		err := next(ctx, cmd)
		if failed(err) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
			observability.RecordErrorInContext(ctx, err)
		}
		return err
	}
}

func (instrumentHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if failed(err) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

func failed(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil)
}

// Options parses addr, accepting either host:port or a redis:// URL.
func Options(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects the package client. On any failure the client stays
// nil and the service runs without cache, realtime push or rate limits.
func InitRedis(addr string) error {
	opts, err := Options(addr)
	if err != nil {
		SetClient(nil)
		return err
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		SetClient(nil)
		return fmt.Errorf("ping redis: %w", err)
	}

	SetClient(c)
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr))
	return nil
}

func GetClient() *redis.Client {
	return client
}

// SetClient replaces the package client and instruments it.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(instrumentHook{})
	}
	client = c
}
