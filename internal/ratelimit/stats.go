package ratelimit

import (
	"context"
	"time"
)

// StatsEvent describes one admission decision.
type StatsEvent struct {
	Scope   Scope
	Allowed bool
	At      time.Time
}

// StatsRecorder receives decisions for reporting. Implementations are
// best-effort: they must not block admission and swallow their own failures.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent)
}

type nopStats struct{}

func (nopStats) Record(context.Context, StatsEvent) {}

// StatsFunc adapts a function to StatsRecorder.
type StatsFunc func(ctx context.Context, ev StatsEvent)

// Record calls f.
func (f StatsFunc) Record(ctx context.Context, ev StatsEvent) {
	if f != nil {
		f(ctx, ev)
	}
}

// MultiStats fans a decision out to several recorders.
type MultiStats []StatsRecorder

// Record forwards ev to every non-nil recorder.
func (m MultiStats) Record(ctx context.Context, ev StatsEvent) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, ev)
		}
	}
}
