package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"invoiceagent/internal/logger"
	"invoiceagent/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [edi-file]",
	Short: "Run one X12 810 invoice through the full pipeline",
	Long: `Parse, enrich, validate and score one invoice, then post it to the ERP
as a vendor bill when it passes validation.

The canonical document is written to PROCESSED_DIR when the bill is posted
and to REJECTS_DIR otherwise. Every outcome is recorded in the history at
STATE_DB_PATH. A rejected invoice is a normal outcome and does not change the
exit code.`,
	Example: `  invoiceagent ingest data/inbound/acme.edi
  invoiceagent ingest acme.edi --dry-run --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Bool("dry-run", false, "Do not contact the ERP; bills get DEMO-<unix> ids")
	ingestCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ingest")

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(0)
	defer cancel()

	deps, err := buildPipeline(ctx, dryRun, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.pipeline.Process(ctx, args[0])
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), "", res, log)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "%s %s\n", statusLabel(res.Status), res.FilePath)
	fmt.Fprintf(w, "  %s %s  %s %s  %s %.2f\n",
		mutedStyle.Render("vendor"), res.VendorID,
		mutedStyle.Render("invoice"), res.InvoiceNumber,
		mutedStyle.Render("anomaly"), res.Anomaly)
	if res.ERPID != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("erp id"), res.ERPID)
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  - %s %s\n", titleStyle.Render(d.Code), d.Message)
	}
	if res.Document != nil && res.Document.Invoice.Explanation != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(res.Document.Invoice.Explanation, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if res.ArtifactPath != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("artifact"), res.ArtifactPath)
	}
}
