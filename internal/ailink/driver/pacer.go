package driver

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound provider calls. A nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows perMinute requests per minute with the given burst.
// perMinute <= 0 disables pacing.
func NewPacer(perMinute, burst int) *Pacer {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(perMinute)
	return &Pacer{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

// Wait blocks until a call may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Limit reports the sustained rate in requests per second.
func (p *Pacer) Limit() float64 {
	if p == nil || p.limiter == nil {
		return 0
	}
	return float64(p.limiter.Limit())
}
