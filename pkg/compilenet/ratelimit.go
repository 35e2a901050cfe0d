package compilenet

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// RateLimiter bounds the rate of compile requests a single server will
// service, guarding against a client submitting pathologically large or
// repeated programs. One token is drawn per request.
type RateLimiter struct {
	tb *tokenbucket.TokenBucket
}

// NewRateLimiter creates a limiter refilling at rate requests/sec, up to
// burst requests held at once.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	tb := &tokenbucket.TokenBucket{}
	tb.Init(tokenbucket.TokensPerSecond(rate), tokenbucket.Tokens(burst))
	return &RateLimiter{tb: tb}
}

// LimitedHandler wraps next, rejecting requests once the bucket is
// exhausted rather than queuing them: a compile request that has to wait
// is indistinguishable from one that failed, from the client's side of a
// single round-trip stream.
func (l *RateLimiter) LimitedHandler(next Handler) Handler {
	return func(ctx context.Context, source string) (uint64, error) {
		fulfilled, tryAgainAfter := l.tb.TryToFulfill(1)
		if !fulfilled {
			return 0, fmt.Errorf("compilenet: rate limit exceeded, retry in %s", tryAgainAfter.Round(time.Millisecond))
		}
		return next(ctx, source)
	}
}
