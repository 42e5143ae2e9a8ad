package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"invoiceagent/internal/logger"
	"invoiceagent/internal/metrics"
	"invoiceagent/internal/mockerp"
)

var mockERPCmd = &cobra.Command{
	Use:   "mock-erp",
	Short: "Serve a local ERP stand-in that stores vendor bills in sqlite",
	Long: `Serve a minimal ERP that accepts vendor bills, for demos and tests.

Endpoints:
  GET  /healthz             liveness
  POST /vendor-bills        create a bill, returns {"id": ...}
  GET  /vendor-bills/{id}   fetch a bill with its lines
  GET  /metrics             Prometheus metrics

Bill ids are derived from vendor id and invoice number, so posting the same
invoice twice returns the same id.`,
	Example: `  invoiceagent mock-erp
  invoiceagent mock-erp --addr :9000 --db /tmp/erp.db`,
	Args: cobra.NoArgs,
	RunE: runMockERP,
}

func init() {
	rootCmd.AddCommand(mockERPCmd)

	mockERPCmd.Flags().String("addr", "", "Listen address (default: MOCK_ERP_ADDR)")
	mockERPCmd.Flags().String("db", "", "sqlite database path (default: MOCK_ERP_DB_PATH)")
}

func runMockERP(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("mock-erp")

	addr, _ := cmd.Flags().GetString("addr")
	dbPath, _ := cmd.Flags().GetString("db")
	if addr == "" {
		addr = cfg.MockERPAddr
	}
	if dbPath == "" {
		dbPath = cfg.MockERPDBPath
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	store, err := mockerp.OpenStore(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open mock ERP store: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := mockerp.New(store, metrics.NewMockERP(reg), reg)
	srv := mockerp.NewServer(addr, h.Router())

	log.Info().
		Str("addr", addr).
		Str("db", dbPath).
		Msg("Mock ERP listening")

	if err := mockerp.Serve(ctx, srv); err != nil {
		return err
	}
	log.Info().Msg("Mock ERP stopped")
	return nil
}
