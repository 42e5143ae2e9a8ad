package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoiceagent/internal/invoice"
	"invoiceagent/internal/logger"
	"invoiceagent/internal/x12"
	"invoiceagent/pkg/models"
)

var parseCmd = &cobra.Command{
	Use:   "parse [edi-file]",
	Short: "Convert an X12 810 invoice to canonical JSON",
	Long: `Parse an X12 810 invoice into the canonical JSON document.

Segments may be terminated by "~" or by line breaks. Unknown segments are
ignored. Malformed numeric elements are skipped and reported as warnings;
with --strict the first malformed element fails the command instead.

Use "-" to read from standard input.`,
	Example: `  # Print the canonical document
  invoiceagent parse data/inbound/acme.edi

  # Include parse warnings and write to a file
  invoiceagent parse acme.edi --warnings -o acme.json

  # Fail on malformed elements
  cat acme.edi | invoiceagent parse - --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// ParseOutput is the JSON written by parse --warnings.
type ParseOutput struct {
	Document *models.CanonicalInvoiceDocument `json:"document"`
	Warnings []models.ParseWarning            `json:"warnings"`
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	parseCmd.Flags().Bool("strict", false, "Fail on the first malformed element")
	parseCmd.Flags().Bool("warnings", false, "Wrap the document together with parse warnings")
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parse")

	outputPath, _ := cmd.Flags().GetString("output")
	strict, _ := cmd.Flags().GetBool("strict")
	withWarnings, _ := cmd.Flags().GetBool("warnings")

	text, err := readEDI(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	var out any
	if strict {
		doc, err := x12.ParseStrict(text)
		if err != nil {
			var malformed *x12.MalformedElementError
			if errors.As(err, &malformed) {
				log.Error().Err(err).Str("file", args[0]).Msg("Malformed element")
			}
			return err
		}
		out = doc
	} else {
		doc, warnings := x12.ParseWithWarnings(text)
		logWarnings(log, warnings)
		out = doc
		if withWarnings {
			if warnings == nil {
				warnings = []models.ParseWarning{}
			}
			out = ParseOutput{Document: doc, Warnings: warnings}
		}
	}

	return writeJSON(cmd.OutOrStdout(), outputPath, out, log)
}

// readEDI reads path, or standard input for "-", dropping invalid UTF-8.
func readEDI(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", invoice.NewProcessingError("read", path, fmt.Errorf("%w: %w", invoice.ErrReadFailed, err), "")
	}
	text := strings.ToValidUTF8(string(raw), "")
	if strings.TrimSpace(text) == "" {
		return "", invoice.NewProcessingError("read", path, invoice.ErrEmptyInput, "")
	}
	return text, nil
}

func logWarnings(log zerolog.Logger, warnings []models.ParseWarning) {
	for _, w := range warnings {
		log.Warn().
			Int("segment", w.Segment).
			Str("tag", w.Tag).
			Int("element", w.Element).
			Str("raw", w.Raw).
			Msg(w.Reason)
	}
}

// writeJSON writes v as indented JSON to outputPath, or to w when empty.
func writeJSON(w io.Writer, outputPath string, v any, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err := w.Write(data)
		return err
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().Err(err).Str("output_path", outputPath).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_path", outputPath).Int("bytes", len(data)).Msg("Output written")
	return nil
}
