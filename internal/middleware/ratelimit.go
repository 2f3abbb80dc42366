package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/pkg/config"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/response"
)

// RateLimiter throttles clients per IP using fixed-window Redis counters.
// Two windows apply: a per-minute budget and a short burst budget. A Redis
// outage never blocks traffic.
type RateLimiter struct {
	client  *redis.Client
	metrics *service.MetricsService
	logger  *zap.Logger
	config  config.RateLimitConfig
}

// NewRateLimiter constructs the limiter.
func NewRateLimiter(client *redis.Client, metrics *service.MetricsService, logger *zap.Logger, cfg config.RateLimitConfig) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{client: client, metrics: metrics, logger: logger, config: cfg}
}

// Handler returns the gin middleware.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.config.Enabled || l.client == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()

		if !l.allow(c.Request.Context(), fmt.Sprintf("rl:min:%s", ip), l.config.RequestsPerMin, time.Minute) {
			l.metrics.RecordRateLimited("minute")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		if !l.allow(c.Request.Context(), fmt.Sprintf("rl:burst:%s", ip), l.config.BurstLimit, l.config.BurstWindow) {
			l.metrics.RecordRateLimited("burst")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}

// allow bumps the fixed-window counter and reports whether the request fits
// the budget. The window TTL is set when the counter is created.
func (l *RateLimiter) allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count <= int64(limit)
}
