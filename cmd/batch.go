package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"invoiceagent/internal/batch"
	"invoiceagent/internal/logger"
	"invoiceagent/internal/metrics"
)

var batchCmd = &cobra.Command{
	Use:   "batch [inputs...]",
	Short: "Ingest many X12 810 invoices in parallel",
	Long: `Ingest every file named by the inputs. An input may be a file, a directory
(scanned with --pattern, recursively with -r) or a glob such as
'data/**/ACME*.edi'. Without inputs data/inbound/*.edi is used.

The command exits non-zero when any invoice was rejected or could not be
processed, which makes it usable as a CI gate.

Optional environment variables:
  BATCH_WORKERS - Default number of parallel workers (default: 1)`,
	Example: `  # Everything in the inbound folder
  invoiceagent batch

  # Preview a recursive scan
  invoiceagent batch data -r --preview

  # Four workers, no ERP calls, metrics for node_exporter
  invoiceagent batch data/inbound --jobs 4 --dry-run --metrics-file batch.prom`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("pattern", batch.DefaultPattern, "Filename pattern when scanning directories")
	batchCmd.Flags().BoolP("recursive", "r", false, "Recurse into directories when scanning")
	batchCmd.Flags().IntP("jobs", "j", 0, "Parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().Bool("dry-run", false, "Do not contact the ERP; bills get DEMO-<unix> ids")
	batchCmd.Flags().Bool("preview", false, "Only list the files that would be ingested")
	batchCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	batchCmd.Flags().String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	pattern, _ := cmd.Flags().GetString("pattern")
	recursive, _ := cmd.Flags().GetBool("recursive")
	jobs, _ := cmd.Flags().GetInt("jobs")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	preview, _ := cmd.Flags().GetBool("preview")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	out := cmd.OutOrStdout()

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{batch.DefaultInput}
	}

	files, missing, err := batch.ResolveTargets(inputs, recursive, pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	for _, m := range missing {
		log.Warn().Str("input", m).Msg("Input not found or unsupported")
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched given inputs")
	}

	if preview {
		fmt.Fprintln(out, titleStyle.Render("Planned files:"))
		for _, f := range files {
			fmt.Fprintf(out, " - %s\n", f)
		}
		fmt.Fprintf(out, "Total: %d\n", len(files))
		return nil
	}

	if jobs <= 0 {
		jobs = numWorkers()
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	deps, err := buildPipeline(ctx, dryRun, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	mode := ""
	if dryRun || cfg.ERPDryRun {
		mode = " [DRY RUN]"
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Ingesting %d file(s) with %d worker(s)%s\n", len(files), jobs, mode)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	progress := cmd.ErrOrStderr()
	if noProgress {
		progress = nil
	}

	start := time.Now()
	items := batch.NewRunner(deps.pipeline, jobs, progress).Run(ctx, files)
	summary := batch.Summarize(items)

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Batch Results"))
	for _, it := range items {
		line := fmt.Sprintf("%s %s", statusLabel(it.Status()), it.FilePath)
		if it.Err != nil {
			line += mutedStyle.Render(" :: " + it.Err.Error())
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Summary"))
	fmt.Fprintf(out, "Total:    %d\n", summary.Total)
	fmt.Fprintf(out, "Posted:   %d\n", summary.Posted)
	fmt.Fprintf(out, "Rejected: %d\n", summary.Rejected)
	fmt.Fprintf(out, "Errored:  %d\n", summary.Errored)
	fmt.Fprintf(out, "Duration: %s\n", time.Since(start).Round(time.Millisecond))

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile, deps.registry); err != nil {
			log.Error().Err(err).Str("path", metricsFile).Msg("Failed to write metrics file")
			return err
		}
	}

	log.Info().
		Int("total", summary.Total).
		Int("posted", summary.Posted).
		Int("rejected", summary.Rejected).
		Int("errored", summary.Errored).
		Msg("Batch processing completed")

	if !summary.OK() {
		return &exitError{msg: fmt.Sprintf("%d rejected, %d errored", summary.Rejected, summary.Errored)}
	}
	return nil
}

// numWorkers returns BATCH_WORKERS, capped at the number of CPUs times four.
func numWorkers() int {
	workers := cfg.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	if limit := runtime.NumCPU() * 4; workers > limit {
		workers = limit
	}
	return workers
}
