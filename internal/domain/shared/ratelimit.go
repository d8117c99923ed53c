package shared

import (
	"context"
	"time"
)

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is the time left in the current window
	ResetAfter time.Duration
}

// RateLimiter counts requests per key within a fixed window
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}
