package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/config"
)

// takeToken refills the bucket stored at KEYS[1] for the whole intervals
// elapsed since its last refill and then takes one token.
// ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, wait_ms}.
var takeToken = redis.NewScript(`
	local now = tonumber(ARGV[1])
	local cap = tonumber(ARGV[2])
	local refill = tonumber(ARGV[3])
	local step = tonumber(ARGV[4])

	local b = redis.call('HMGET', KEYS[1], 'tokens', 'stamp')
	local tokens, stamp = tonumber(b[1]), tonumber(b[2])
	if not tokens or not stamp then
		tokens, stamp = cap, now
	end
	if step > 0 then
		local n = math.floor(math.max(0, now - stamp) / step)
		if n > 0 then
			tokens = math.min(cap, tokens + n * refill)
			stamp = stamp + n * step
		end
	end

	local ok, wait = 0, 0
	if tokens >= 1 then
		ok, tokens = 1, tokens - 1
	else
		wait = math.max(0, step - (now - stamp))
	end
	redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
	return {ok, tokens, wait}
`)

// decision is the outcome of one bucket take.
type decision struct {
	Allowed   bool
	Remaining int64
	Wait      time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds for Retry-After.
func (d decision) RetryAfterSeconds() int {
	if d.Wait <= 0 {
		return 0
	}
	return int((d.Wait + time.Second - 1) / time.Second)
}

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b tokenBucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
	vals, err := takeToken.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(), b.cfg.Capacity, b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(), int64(b.cfg.TTL/time.Second),
	).Slice()
	if err != nil {
		return decision{}, err
	}
	return parseDecision(vals)
}

func parseDecision(vals []interface{}) (decision, error) {
	if len(vals) != 3 {
		return decision{}, fmt.Errorf("unexpected rate limit reply %#v", vals)
	}
	return decision{
		Allowed:   asInt64(vals[0]) == 1,
		Remaining: asInt64(vals[1]),
		Wait:      time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits the payment endpoints per caller.  Redis errors
// let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := tokenBucket{cfg: cfg, rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := bucket.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("rate limit check failed")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}
			secs := d.RetryAfterSeconds()
			h.Set("Retry-After", strconv.Itoa(secs))
			log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Debug("rate limited")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// buildRateKey composes the bucket key from the configured strategy.
// Payment endpoints default to user_route so one user exhausting verify
// does not block their initiate.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := requesterKey(c)
	route := c.Request().Method + " " + c.Path()

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = []string{"ip", ip}
	case "user":
		parts = []string{"user", user}
	case "route":
		parts = []string{"route", route}
	case "ip_route":
		parts = []string{"ip", ip, "route", route}
	case "user_route":
		parts = []string{"user", user, "route", route}
	default:
		parts = []string{"ip", ip, "user", user, "route", route}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}
