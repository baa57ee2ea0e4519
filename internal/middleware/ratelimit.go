// Package middleware holds the cross-cutting Fiber middleware: logging context, metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens when Redis cannot be reached.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	// FailClosed answers 503 when the counter store is down.
	FailClosed
)

var errNoStore = errors.New("rate limit store is not configured")

// Rule limits one resource to Limit hits per Window.
type Rule struct {
	Resource string
	Limit    int
	Window   time.Duration
	Policy   FailPolicy
}

// Result is the outcome of a single hit against a rule.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits in Redis with fixed windows keyed rl:<resource>:<id>.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewLimiter returns a limiter. Disabled limiters allow everything, which is
// what local development and the test suite run with.
func NewLimiter(rdb *redis.Client, enabled bool) *Limiter {
	return &Limiter{rdb: rdb, enabled: enabled}
}

// LimitsEnabled reports whether an environment enforces rate limits.
func LimitsEnabled(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Hit records one request for id against rule.
func (l *Limiter) Hit(ctx context.Context, rule Rule, id string) (Result, error) {
	if l == nil || !l.enabled {
		return Result{Allowed: true, Remaining: rule.Limit}, nil
	}
	if l.rdb == nil {
		return Result{}, errNoStore
	}

	key := fmt.Sprintf("rl:%s:%s", rule.Resource, id)
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if cnt == 1 {
		l.rdb.Expire(ctx, key, rule.Window)
	}

	res := Result{Allowed: cnt <= int64(rule.Limit), Remaining: rule.Limit - int(cnt)}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		ttl, err := l.rdb.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = rule.Window
		}
		res.RetryAfter = ttl
	}
	return res, nil
}

// Handler enforces rule per authenticated user, falling back to client IP.
func (l *Limiter) Handler(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			id = fmt.Sprintf("user:%d", uid)
		}
		resource := rule.Resource
		if resource == "" {
			resource = c.Path()
		}
		r := rule
		r.Resource = resource

		res, err := l.Hit(ctx, r, id)
		if err != nil {
			if rule.Policy == FailClosed {
				Logger.WarnContext(ctx, "rate limit store unavailable, failing closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(res.RetryAfter.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
