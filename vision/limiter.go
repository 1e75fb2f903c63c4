package vision

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// RateLimitedModel shares a token bucket across all callers of the wrapped model.
type RateLimitedModel struct {
	next    Model
	limiter *rate.Limiter
}

// NewRateLimitedModel allows perSecond calls on average with bursts up to burst.
// A non-positive perSecond disables limiting.
func NewRateLimitedModel(next Model, perSecond float64, burst int) *RateLimitedModel {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedModel{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (m *RateLimitedModel) Describe(ctx context.Context, req Request) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "vision: waiting for rate limiter")
	}
	return m.next.Describe(ctx, req)
}
