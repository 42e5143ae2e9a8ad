// Package invoice checks canonical X12 810 documents against the business
// rules an invoice must satisfy before it can be posted to the ERP.
//
// Validation never fails with a Go error. Every broken rule is reported as a
// models.Diagnostic carrying a stable code:
//   - BIG02: invoice number missing
//   - BIG01: invoice date missing
//   - IT1:   no line items
//   - TDS:   invoice total missing, or lines+tax+charges differs from it by more than one cent
//   - CTT:   declared line count differs from the actual number of lines
//
// Diagnostics are always returned in that order, and validating the same
// document twice yields the same list.
package invoice

import (
	"github.com/rs/zerolog"

	"invoiceagent/internal/logger"
	"invoiceagent/pkg/models"
)

// Diagnostic codes, in reporting order.
const (
	CodeMissingNumber = "BIG02"
	CodeMissingDate   = "BIG01"
	CodeNoLines       = "IT1"
	CodeTotals        = "TDS"
	CodeLineCount     = "CTT"
)

// Validator runs the invoice rules and logs their outcome.
type Validator struct {
	log zerolog.Logger
}

// NewValidator creates a validator logging under the "validator" component.
func NewValidator() *Validator {
	return &Validator{
		log: logger.WithComponent("validator"),
	}
}

// Validate returns the diagnostics for doc. It does not modify doc.
func (v *Validator) Validate(doc *models.CanonicalInvoiceDocument) []models.Diagnostic {
	diags := Validate(doc)

	ev := v.log.Debug()
	if len(diags) > 0 {
		ev = v.log.Info()
	}
	if doc != nil {
		ev = ev.Str("invoice_number", doc.Invoice.InvoiceNumber)
	}
	ev.Int("diagnostics", len(diags)).
		Strs("codes", Codes(diags)).
		Msg("Invoice validated")

	return diags
}

// Codes returns the code of every diagnostic, in order.
func Codes(diags []models.Diagnostic) []string {
	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	return codes
}
