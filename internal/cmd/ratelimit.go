package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pippora/pippora/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect rate limit configuration and decision counters",
}

var rateLimitStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision totals recorded in Redis",
	Long: `Show cumulative allowed/denied counts per identifier space.

Counters exist only when rate_limit.stats.enabled is true. They summarize
every instance writing to the same Redis prefix; admission itself is
per-process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.RateLimit.Stats.Enabled {
			return fmt.Errorf("rate limit stats are disabled; set rate_limit.stats.enabled")
		}

		rdb := newRedisClient(cfg.RateLimit.Stats)
		defer rdb.Close() // nolint:errcheck // best-effort cleanup

		totals, err := newRedisStats(rdb, cfg.RateLimit.Stats).Totals(cmd.Context())
		if err != nil {
			return err
		}

		rendered, err := output.FormatCounters(format, "Rate limit decisions", totals)
		if err != nil {
			return err
		}
		return writeOutput(cmd, "rate-limit-stats", format, rendered)
	},
}

var rateLimitShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective admission policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		policy := cfg.RateLimit.PolicyConfig
		counters := map[string]string{
			"enabled":      fmt.Sprintf("%t", policy.Enabled),
			"email.limit":  fmt.Sprintf("%d", policy.Email.Limit),
			"email.window": policy.Email.Window.String(),
			"ip.limit":     fmt.Sprintf("%d", policy.IP.Limit),
			"ip.window":    policy.IP.Window.String(),
			"whitelist":    fmt.Sprintf("%d entries", len(policy.Whitelist)),
		}

		rendered, err := output.FormatCounters(format, "Rate limit policy", counters)
		if err != nil {
			return err
		}
		return writeOutput(cmd, "rate-limit-policy", format, rendered)
	},
}

func init() {
	addOutputFlags(rateLimitStatsCmd, "table|json|markdown")
	addOutputFlags(rateLimitShowCmd, "table|json|markdown")

	rateLimitCmd.AddCommand(rateLimitStatsCmd)
	rateLimitCmd.AddCommand(rateLimitShowCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
