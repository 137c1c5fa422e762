package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/output"
	"github.com/pippora/pippora/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded generations",
	Long: `Inspect the generation history kept in the libsql store.

History is written only while store.enabled is true; the commands read the
configured database either way.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		email, _ := cmd.Flags().GetString("email")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")

		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind != "" && kind != "portrait" && kind != "blog" {
			return fmt.Errorf("--kind must be portrait or blog, got %q", kind)
		}

		query := store.GenerationQuery{Kind: kind, Email: email, Limit: limit}
		if since > 0 {
			query.Since = time.Now().Add(-since)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListGenerations(cmd.Context(), query)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatGenerations(entries)
		if err != nil {
			return err
		}
		return writeOutput(cmd, "history", format, rendered)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete generations older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		removed, err := db.PruneGenerations(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		observability.CLILogger.Info("Pruned generation history",
			zap.Int64("removed", removed),
			zap.Duration("older_than", olderThan))
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("kind", "", "Filter by kind: portrait|blog")
	historyListCmd.Flags().String("email", "", "Filter by requester email")
	historyListCmd.Flags().Int("limit", 50, "Maximum entries to show")
	historyListCmd.Flags().Duration("since", 0, "Only entries newer than this (e.g. 24h)")
	addOutputFlags(historyListCmd, "table|json|markdown")

	historyPruneCmd.Flags().Duration("older-than", 90*24*time.Hour, "Delete entries older than this")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Store.Enabled {
		observability.CLILogger.Debug("History recording is disabled (store.enabled=false)")
	}
	return openHistory(ctx, cfg.Store)
}
