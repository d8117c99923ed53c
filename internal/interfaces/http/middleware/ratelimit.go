package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rate limit headers
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RetryAfterHeader         = "Retry-After"
)

// RateLimitConfig holds configuration for the rate limiting middleware
type RateLimitConfig struct {
	Limiter shared.RateLimiter
	// KeyFunc overrides the default key of company, falling back to client IP
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimitKey keys requests by company once Company has run, else by client IP
func RateLimitKey(c *gin.Context) string {
	if id := GetCompanyID(c); id != uuid.Nil {
		return "company:" + id.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests beyond the limiter's window with 429.
// Limiter failures are logged and the request proceeds.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = RateLimitKey
	}

	return func(c *gin.Context) {
		if cfg.Limiter == nil {
			c.Next()
			return
		}

		decision, err := cfg.Limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header(RateLimitLimitHeader, strconv.Itoa(decision.Limit))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header(RetryAfterHeader, strconv.Itoa(int(math.Ceil(decision.ResetAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited, "rate_limited",
					"Too many requests. Please try again later.", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
