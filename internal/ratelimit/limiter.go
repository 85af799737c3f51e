package ratelimit

import "context"

// RateLimiter throttles outbound SMS gateway calls per named lane.
type RateLimiter interface {
	Allow(ctx context.Context, lane string) (bool, error)
	Wait(ctx context.Context, lane string) error
}
