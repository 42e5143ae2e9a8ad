package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoiceagent/internal/anomaly"
	"invoiceagent/internal/logger"
)

var anomalyCmd = &cobra.Command{
	Use:   "anomaly",
	Short: "Inspect or reset the per-vendor amount history used for anomaly scores",
	Long: `Anomaly scores compare an invoice total with the last 50 totals of the same
vendor, kept in Redis at REDIS_URL. These commands need Redis to be reachable.`,
}

var anomalyHistoryCmd = &cobra.Command{
	Use:     "history [vendor-id]",
	Short:   "Show the retained amounts of a vendor, newest first",
	Example: `  invoiceagent anomaly history ACME-42 --limit 10`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnomalyHistory,
}

var anomalyResetCmd = &cobra.Command{
	Use:     "reset [vendor-id]",
	Short:   "Forget the amount history of a vendor",
	Example: `  invoiceagent anomaly reset ACME-42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnomalyReset,
}

func init() {
	rootCmd.AddCommand(anomalyCmd)
	anomalyCmd.AddCommand(anomalyHistoryCmd, anomalyResetCmd)

	anomalyHistoryCmd.Flags().Int("limit", anomaly.MaxHistory, "Maximum number of amounts")
}

func connectScorer(cmd *cobra.Command) (*anomaly.Scorer, func(), error) {
	if cfg.RedisURL == "" {
		return nil, nil, fmt.Errorf("REDIS_URL is not set: %w", anomaly.ErrNotConfigured)
	}
	client, err := anomaly.Connect(cmd.Context(), cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return anomaly.NewScorer(anomaly.NewRedisHistory(client)), func() { client.Close() }, nil
}

func runAnomalyHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	scorer, closeFn, err := connectScorer(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	values, err := scorer.History(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(anomaly.Key(args[0])))
	if len(values) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (empty)"))
		return nil
	}
	for i, v := range values {
		fmt.Fprintf(out, "  %2d  %12.2f\n", i+1, v)
	}
	return nil
}

func runAnomalyReset(cmd *cobra.Command, args []string) error {
	scorer, closeFn, err := connectScorer(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := scorer.Reset(cmd.Context(), args[0]); err != nil {
		return err
	}
	log := logger.WithComponent("anomaly")
	log.Info().Str("vendor_id", args[0]).Msg("Vendor amount history reset")
	fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", anomaly.Key(args[0]))
	return nil
}
