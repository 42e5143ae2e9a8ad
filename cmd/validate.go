package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoiceagent/internal/explain"
	"invoiceagent/internal/invoice"
	"invoiceagent/internal/logger"
	"invoiceagent/internal/x12"
	"invoiceagent/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate [edi-file]",
	Short: "Check an X12 810 invoice against the business rules",
	Long: `Parse an X12 810 invoice and report every broken business rule as a
[code, message] pair. The command exits non-zero when any rule is broken.

Codes: BIG02 (invoice number), BIG01 (invoice date), IT1 (line items),
TDS (invoice total), CTT (line count).`,
	Example: `  invoiceagent validate data/inbound/acme.edi
  invoiceagent validate acme.edi --explain`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// ValidateOutput is the JSON written by validate.
type ValidateOutput struct {
	File        string              `json:"file"`
	Valid       bool                `json:"valid"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	Explanation string              `json:"explanation,omitempty"`
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("explain", false, "Add a plain-language explanation of the findings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate")
	withExplanation, _ := cmd.Flags().GetBool("explain")

	text, err := readEDI(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	doc, warnings := x12.ParseWithWarnings(text)
	logWarnings(log, warnings)

	diags := invoice.NewValidator().Validate(doc)
	out := ValidateOutput{
		File:        args[0],
		Valid:       len(diags) == 0,
		Diagnostics: diags,
	}
	if withExplanation {
		ctx, cancel := commandContext(cfg.ERPTimeout)
		defer cancel()
		out.Explanation = explain.NewFromAPIKey(cfg.OpenAIAPIKey, cfg.OpenAIModel).Explain(ctx, diags, text)
	}

	if err := writeJSON(cmd.OutOrStdout(), "", out, log); err != nil {
		return err
	}
	if err := invoice.AsError(diags); err != nil {
		return &exitError{msg: fmt.Sprintf("%s: %v", args[0], err)}
	}
	return nil
}
