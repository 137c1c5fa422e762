package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pippora/pippora/internal/observability"
)

// RedisStats aggregates decision counts in Redis hashes. Counts are purely
// informational; admission never reads them back.
type RedisStats struct {
	rdb     redis.Cmdable
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisStatsOption customizes RedisStats.
type RedisStatsOption func(*RedisStats)

// WithStatsPrefix sets the key prefix (default "pippora:ratelimit").
func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStats) {
		if p := strings.Trim(strings.TrimSpace(prefix), ":"); p != "" {
			s.prefix = p
		}
	}
}

// WithStatsTTL sets the expiry of per-minute buckets.
func WithStatsTTL(ttl time.Duration) RedisStatsOption {
	return func(s *RedisStats) { s.ttl = ttl }
}

// NewRedisStats returns a recorder writing through rdb.
func NewRedisStats(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStats {
	s := &RedisStats{
		rdb:     rdb,
		prefix:  "pippora:ratelimit",
		ttl:     48 * time.Hour,
		timeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the total and per-minute counters for ev.
func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) {
	if s == nil || s.rdb == nil {
		return
	}
	if err := s.write(ctx, ev); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record rate limit stats",
			zap.String("scope", string(ev.Scope)),
			zap.Error(err))
	}
}

func (s *RedisStats) write(ctx context.Context, ev StatsEvent) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := statsField(ev)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative counters keyed by "<scope>:<outcome>".
func (s *RedisStats) Totals(ctx context.Context) (map[string]string, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("redis stats not configured")
	}
	return s.rdb.HGetAll(ctx, s.prefix+":total").Result()
}

func statsField(ev StatsEvent) string {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	return string(ev.Scope) + ":" + outcome
}
