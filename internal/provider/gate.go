package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// gate cooperatively admits outbound provider calls: a token bucket for
// the requests-per-minute budget plus a counting semaphore for the inflight
// concurrency cap. Acquiring always blocks on ctx, never spins or drops.
type gate struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

// newGate builds a gate from a spec §4.2 RateLimit, or nil if cfg is nil —
// callers must treat a nil *gate as "unrestricted."
func newGate(cfg *RateLimit) *gate {
	if cfg == nil {
		return nil
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &gate{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		sem:     make(chan struct{}, concurrency),
	}
}

// acquire blocks until both the rate budget and a concurrency slot are
// available, or ctx is done. release must be called exactly once when the
// caller is done, even on error paths.
func (g *gate) acquire(ctx context.Context) (release func(), err error) {
	if g == nil {
		return func() {}, nil
	}
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		<-g.sem
		return nil, err
	}
	return func() { <-g.sem }, nil
}
