package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/observability"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: version info, configuration, the OpenAI key,
and the history store and Redis stats backend when they are enabled.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("Running health check...")

		if versionInfo.Version == "" {
			log.Error("❌ FAIL: Version information missing")
			ExitWithCode(log, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		log.Debug("Version check passed", zap.String("version", versionInfo.Version))
		log.Info("✅ Version information available")

		cfg, err := loadConfig()
		if err != nil {
			log.Error("❌ FAIL: Configuration invalid")
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		log.Info("✅ Configuration valid",
			zap.Bool("rate_limit", cfg.RateLimit.Enabled),
			zap.Bool("history", cfg.Store.Enabled),
			zap.Bool("stats", cfg.RateLimit.Stats.Enabled))

		if cfg.OpenAI.APIKey == "" {
			log.Warn("⚠️  OpenAI API key not configured; generation will fail")
		} else {
			log.Info("✅ OpenAI API key configured")
		}
		if cfg.MailingList.APIKey == "" {
			log.Info("ℹ️  Mailing list registration disabled")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		if cfg.Store.Enabled {
			db, err := openHistory(ctx, cfg.Store)
			if err == nil {
				err = db.CheckHealth(ctx)
				_ = db.Close()
			}
			if err != nil {
				ExitWithCode(log, foundry.ExitExternalServiceUnavailable, "History store unavailable", err)
				return
			}
			log.Info("✅ History store reachable", zap.String("driver", cfg.Store.Driver))
		}

		if cfg.RateLimit.Stats.Enabled {
			rdb := newRedisClient(cfg.RateLimit.Stats)
			err := rdb.Ping(ctx).Err()
			_ = rdb.Close()
			if err != nil {
				// Stats are observational; report but do not fail.
				log.Warn("⚠️  Rate limit stats backend unreachable",
					zap.String("addr", cfg.RateLimit.Stats.RedisAddr),
					zap.Error(err))
			} else {
				log.Info("✅ Rate limit stats backend reachable")
			}
		}

		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "timeout for backend checks")
}
