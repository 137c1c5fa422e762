package metrics

import (
	"github.com/pippora/pippora/internal/observability"
)

// Application-level metric names following Prometheus conventions.
const (
	RateLimitDecisionsTotal = "ratelimit_decisions_total"
	GenerationsTotal        = "generations_total"
	SubscriptionsTotal      = "mailinglist_subscriptions_total"

	ServerStartTime = "app_server_start_time_seconds"
)

// Generation kinds.
const (
	KindPortrait = "portrait"
	KindBlog     = "blog"
)

// RecordRateLimitDecision counts one admission check in scope
// (email, ip, whitelist or disabled).
func RecordRateLimitDecision(scope string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{
				"scope":   scope,
				"outcome": outcome,
			},
		)
	}
}

// RecordGeneration counts a finished portrait or blog generation.
func RecordGeneration(kind string, success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			GenerationsTotal,
			1,
			map[string]string{
				"kind":   kind,
				"status": status(success),
			},
		)
	}
}

// RecordSubscription counts mailing-list registrations.
func RecordSubscription(success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SubscriptionsTotal,
			1,
			map[string]string{"status": status(success)},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
