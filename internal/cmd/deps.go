package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pippora/pippora/internal/ailink"
	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/config"
	"github.com/pippora/pippora/internal/mailinglist"
	"github.com/pippora/pippora/internal/metrics"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/ratelimit"
	"github.com/pippora/pippora/internal/store"
)

// services bundles everything built from configuration. close releases the
// store and the Redis client.
type services struct {
	link      *ailink.Link
	policy    *ratelimit.Policy
	portraits *portrait.Service
	blog      *blog.Service
	db        *store.Store
	redis     *redis.Client
}

func (s *services) close() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// buildServices wires generators, the admission policy and optional sinks.
// The history store and Redis stats are opened only when enabled.
func buildServices(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*services, error) {
	link, err := ailink.New(cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	svc := &services{link: link}

	if cfg.Store.Enabled {
		db, err := openHistory(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		svc.db = db
	}

	stats := ratelimit.MultiStats{
		ratelimit.StatsFunc(func(_ context.Context, ev ratelimit.StatsEvent) {
			metrics.RecordRateLimitDecision(string(ev.Scope), ev.Allowed)
		}),
	}
	if cfg.RateLimit.Stats.Enabled {
		svc.redis = newRedisClient(cfg.RateLimit.Stats)
		stats = append(stats, newRedisStats(svc.redis, cfg.RateLimit.Stats))
	}

	policy, err := ratelimit.NewPolicy(cfg.RateLimit.PolicyConfig, ratelimit.WithStats(stats))
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("rate_limit: %w", err)
	}
	svc.policy = policy

	if logger != nil {
		rules := []zap.Field{zap.Bool("enabled", policy.Enabled())}
		if policy.Enabled() {
			email, ip := policy.Rules()
			rules = append(rules,
				zap.Int("email_limit", email.Limit),
				zap.Duration("email_window", email.Window),
				zap.Int("ip_limit", ip.Limit),
				zap.Duration("ip_window", ip.Window),
				zap.Int("whitelisted", len(cfg.RateLimit.Whitelist)),
			)
		}
		logger.Info("Rate limit policy", rules...)
	}

	opts := []portrait.Option{
		portrait.WithPolicy(policy),
		portrait.WithMailingList(mailinglist.New(cfg.MailingList)),
	}
	var history store.Recorder
	if svc.db != nil {
		history = svc.db
		opts = append(opts, portrait.WithHistory(svc.db))
	}
	if logger != nil {
		opts = append(opts, portrait.WithLogger(logger))
	}

	svc.portraits = portrait.New(link, cfg.Portrait, opts...)
	svc.blog = blog.New(link, cfg.Blog, history, logger)
	return svc, nil
}

func openHistory(ctx context.Context, cfg store.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return db, nil
}

func newRedisClient(cfg config.StatsConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func newRedisStats(rdb redis.Cmdable, cfg config.StatsConfig) *ratelimit.RedisStats {
	return ratelimit.NewRedisStats(rdb,
		ratelimit.WithStatsPrefix(cfg.Prefix),
		ratelimit.WithStatsTTL(cfg.TTL),
	)
}

// redisHealth pings the stats backend. A failing ping degrades readiness
// but never blocks admission.
type redisHealth struct {
	client *redis.Client
}

func (h redisHealth) CheckHealth(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// openAIHealth reports whether an API key is configured. It never calls out.
type openAIHealth struct {
	link *ailink.Link
}

func (h openAIHealth) CheckHealth(context.Context) error {
	if h.link == nil || !h.link.Configured() {
		return ailink.ErrNotConfigured
	}
	return nil
}
