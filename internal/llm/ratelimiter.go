package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider paces completion calls to stay inside a hosted
// API's requests-per-minute quota. Batch analysis fires one completion
// per sample back to back; without pacing a corpus-sized batch trips
// the provider's 429 responses.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimitedProvider wraps provider so that at most rpm requests
// start per minute, spaced evenly rather than granted in bursts.
// rpm <= 0 disables pacing and returns the provider unchanged.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.reserve(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// reserve claims the next free start slot and sleeps until it arrives.
func (r *RateLimitedProvider) reserve(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
