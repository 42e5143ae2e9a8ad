package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoiceagent/internal/logger"
	"invoiceagent/internal/report"
	"invoiceagent/internal/sheets"
	"invoiceagent/internal/storage"
	"invoiceagent/pkg/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export the processing history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed invoices, newest first",
	Example: `  invoiceagent history list --status REJECTED
  invoiceagent history list --vendor ACME --limit 5 --json`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count processed invoices by status",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history to an xlsx workbook or a Google Sheet",
	Long: `Export the processing history.

With --xlsx the history is written to a local workbook. With --sheets the
rows are appended to the Google Sheet at GOOGLE_SHEET_URL, authenticated with
the service account key at GOOGLE_SERVICE_ACCOUNT_KEY (or
GOOGLE_APPLICATION_CREDENTIALS / GOOGLE_CREDENTIALS).`,
	Example: `  invoiceagent history export --xlsx history.xlsx
  invoiceagent history export --sheets --status POSTED`,
	Args: cobra.NoArgs,
	RunE: runHistoryExport,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyStatsCmd, historyExportCmd)

	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("status", "", "Only records with this status (POSTED, REJECTED)")
		c.Flags().String("vendor", "", "Only records for this vendor id")
		c.Flags().Int("limit", 0, "Maximum number of records (0 = all)")
	}
	historyListCmd.Flags().Bool("json", false, "Print records as JSON")

	historyExportCmd.Flags().String("xlsx", "", "Write an xlsx workbook to this path")
	historyExportCmd.Flags().Bool("sheets", false, "Append rows to GOOGLE_SHEET_URL")
	historyExportCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
}

func historyFilter(cmd *cobra.Command) storage.ListFilter {
	status, _ := cmd.Flags().GetString("status")
	vendor, _ := cmd.Flags().GetString("vendor")
	limit, _ := cmd.Flags().GetInt("limit")
	return storage.ListFilter{
		Status: strings.ToUpper(status),
		Vendor: vendor,
		Limit:  limit,
	}
}

func loadHistory(ctx context.Context, filter storage.ListFilter) ([]models.ProcessingRecord, error) {
	store, err := storage.NewSQLiteStorage(ctx, cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	return store.ListInvoices(ctx, filter)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("history")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(0)
	defer cancel()

	recs, err := loadHistory(ctx, historyFilter(cmd))
	if err != nil {
		return err
	}
	if asJSON {
		if recs == nil {
			recs = []models.ProcessingRecord{}
		}
		return writeJSON(cmd.OutOrStdout(), "", recs, log)
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No invoices recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Processed"),
		headerStyle.Render("Status"),
		headerStyle.Render("Vendor"),
		headerStyle.Render("Invoice"),
		headerStyle.Render("Total"),
		headerStyle.Render("Anomaly"),
		headerStyle.Render("ERP ID / Errors"),
	)
	for _, r := range recs {
		anomaly := "-"
		if r.AnomalyScore != nil {
			anomaly = fmt.Sprintf("%.2f", *r.AnomalyScore)
		}
		detail := r.ERPID
		if len(r.Errors) > 0 {
			detail = report.ErrorSummary(r.Errors)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format(report.TimeLayout),
			statusLabel(r.Status),
			r.VendorID,
			r.InvoiceNumber,
			r.InvoiceTotal,
			anomaly,
			detail,
		)
	}
	return w.Flush()
}

func runHistoryStats(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(0)
	defer cancel()

	store, err := storage.NewSQLiteStorage(ctx, cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return err
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for s, n := range counts {
		statuses = append(statuses, s)
		total += n
	}
	sort.Strings(statuses)

	out := cmd.OutOrStdout()
	for _, s := range statuses {
		fmt.Fprintf(out, "%s %d\n", statusLabel(s), counts[s])
	}
	fmt.Fprintf(out, "%s %d\n", titleStyle.Render("Total:    "), total)
	return nil
}

func runHistoryExport(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("history")

	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	toSheets, _ := cmd.Flags().GetBool("sheets")
	sheetName, _ := cmd.Flags().GetString("sheet")
	if xlsxPath == "" && !toSheets {
		return fmt.Errorf("nothing to do: pass --xlsx <path> and/or --sheets")
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	recs, err := loadHistory(ctx, historyFilter(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if xlsxPath != "" {
		if err := report.SaveXLSX(xlsxPath, sheetName, recs); err != nil {
			return err
		}
		log.Info().Str("path", xlsxPath).Int("rows", len(recs)).Msg("History exported to workbook")
		fmt.Fprintf(out, "Wrote %d row(s) to %s\n", len(recs), xlsxPath)
	}

	if toSheets {
		if cfg.GoogleSheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
		}
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, cfg.GoogleServiceAccountKey)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		n, err := svc.AppendRecords(ctx, sheetName, recs)
		if err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Fprintf(out, "Sheet: %s\n", sheetName)
		fmt.Fprintf(out, "Rows added: %d\n", n)
		fmt.Fprintf(out, "URL: %s\n", cfg.GoogleSheetURL)
	}
	return nil
}
