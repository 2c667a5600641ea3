package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

// RateLimitConfig sets a token bucket per client. Idle buckets expire after
// IdleTTL.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleTTL           time.Duration
}

type RateLimiter struct {
	config   RateLimitConfig
	limiters *cache.Cache
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(config.IdleTTL, 2*config.IdleTTL),
	}
}

// key prefers the authenticated actor so clinicians behind one NAT do not
// share a bucket.
func key(c *gin.Context) string {
	if v, ok := c.Get(actorIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return "actor:" + id
		}
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) limiter(k string) *rate.Limiter {
	if v, ok := rl.limiters.Get(k); ok {
		rl.limiters.SetDefault(k, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)
	if err := rl.limiters.Add(k, l, cache.DefaultExpiration); err != nil {
		// Lost the race with another request for the same key.
		if v, ok := rl.limiters.Get(k); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(key(c)).Allow() {
			httputil.AbortWithError(c, &errors.AppError{Code: errors.ErrRateLimited, Message: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
