package embedding

import (
	"context"

	"golang.org/x/time/rate"

	apperrors "notegraph/pkg/errors"
)

// RateLimited throttles calls to an underlying provider with a token bucket
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls per second with the given burst
func NewRateLimited(next Provider, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Model returns the wrapped provider's model
func (r *RateLimited) Model() string {
	return r.next.Model()
}

// Embed waits for a token, then delegates
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewProviderFailed("rate limiter", false, err)
	}
	return r.next.Embed(ctx, text)
}
