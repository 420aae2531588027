package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client
	Requests     int           // Number of requests allowed
	Window       time.Duration // Time window
	KeyPrefix    string        // Redis key prefix
	ErrorMessage string        // Custom error message
}

type RateLimitStrategy string

const (
	StrategyIP       RateLimitStrategy = "ip"
	StrategyUser     RateLimitStrategy = "user"
	StrategyUserOrIP RateLimitStrategy = "user_or_ip"
)

// RateLimiter is a sliding-window limiter over Redis sorted sets. Without
// a Redis client it degrades to per-process token buckets.
type RateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy

	localMu sync.Mutex
	local   map[string]*utils.RateLimiter
}

func NewRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "api"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}
	if config.Requests <= 0 {
		config.Requests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &RateLimiter{
		config:   config,
		strategy: strategy,
		local:    make(map[string]*utils.RateLimiter),
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.getKey(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, remaining, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: an unavailable Redis must never block an SOS
			logrus.WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}

		resetTime := time.Now().Add(rl.config.Window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			rl.handleRateLimitExceeded(c)
			return
		}

		c.Next()
	}
}

// Allow records one request under key and reports whether it fits.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if rl.config.Redis == nil {
		return rl.allowLocal(key)
	}

	now := time.Now()
	window := rl.config.Window
	member := fmt.Sprintf("%d-%s", now.UnixNano(), utils.GenerateUUID())

	pipe := rl.config.Redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	current := count.Val()
	if current >= int64(rl.config.Requests) {
		// Rejected requests do not consume the window
		rl.config.Redis.ZRem(ctx, key, member)
		return false, 0, nil
	}

	remaining := rl.config.Requests - int(current) - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int, error) {
	rl.localMu.Lock()
	bucket, ok := rl.local[key]
	if !ok {
		bucket = utils.NewRateLimiter(rl.config.Requests, rl.config.Window)
		rl.local[key] = bucket
	}
	rl.localMu.Unlock()

	allowed := bucket.Allow()
	return allowed, bucket.Remaining(), nil
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	prefix := "ratelimit:" + rl.config.KeyPrefix

	switch rl.strategy {
	case StrategyUser:
		userID := utils.GetUserID(c)
		if userID == "" {
			return ""
		}
		return prefix + ":user:" + userID

	case StrategyUserOrIP:
		if userID := utils.GetUserID(c); userID != "" {
			return prefix + ":user:" + userID
		}
		return prefix + ":ip:" + c.ClientIP()

	default:
		return prefix + ":ip:" + c.ClientIP()
	}
}

func (rl *RateLimiter) handleRateLimitExceeded(c *gin.Context) {
	retryAfter := int(rl.config.Window.Seconds())
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	logrus.WithFields(logrus.Fields{
		"clientIp":   c.ClientIP(),
		"userId":     utils.GetUserID(c),
		"path":       c.Request.URL.Path,
		"limit":      rl.config.KeyPrefix,
		"retryAfter": retryAfter,
	}).Warn("Rate limit exceeded")

	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
		Success: false,
		Message: rl.config.ErrorMessage,
		Error: &models.APIError{
			Code:    utils.ErrCodeRateLimit,
			Message: rl.config.ErrorMessage,
			Details: map[string]interface{}{"retryAfter": retryAfter},
		},
		Timestamp: time.Now(),
	})
}

// APIRateLimit is the general per-user (or per-IP when anonymous) limit.
func APIRateLimit(redis *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     requests,
		Window:       window,
		KeyPrefix:    "api",
		ErrorMessage: "Rate limit exceeded. Please try again later.",
	}, StrategyUserOrIP).Middleware()
}

// AuthRateLimit guards login, register and OTP endpoints by IP.
func AuthRateLimit(redis *redis.Client) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     10,
		Window:       time.Minute,
		KeyPrefix:    "auth",
		ErrorMessage: "Too many authentication attempts. Please try again later.",
	}, StrategyIP).Middleware()
}

// SOSRateLimit is the strict per-user limit on SOS submissions.
func SOSRateLimit(redis *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:        redis,
		Requests:     requests,
		Window:       window,
		KeyPrefix:    "sos",
		ErrorMessage: "SOS already sent. Responders have been notified.",
	}, StrategyUser).Middleware()
}
