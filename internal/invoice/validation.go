package invoice

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"invoiceagent/pkg/models"
)

// Tolerance is the largest accepted gap between the computed and declared total.
var Tolerance = decimal.New(1, -2)

// Validate runs every rule against doc. All rules run; none short-circuits.
// A nil document is treated as an empty one.
func Validate(doc *models.CanonicalInvoiceDocument) []models.Diagnostic {
	var inv models.Invoice
	if doc != nil {
		inv = doc.Invoice
	}

	diags := []models.Diagnostic{}

	if inv.InvoiceNumber == "" {
		diags = append(diags, models.Diagnostic{Code: CodeMissingNumber, Message: "Missing invoice number (BIG02)."})
	}
	if inv.InvoiceDate == "" {
		diags = append(diags, models.Diagnostic{Code: CodeMissingDate, Message: "Missing invoice date (BIG01)."})
	}
	if len(inv.Lines) == 0 {
		diags = append(diags, models.Diagnostic{Code: CodeNoLines, Message: "No line items (IT1)."})
	}
	if d, ok := checkTotals(&inv); !ok {
		diags = append(diags, d)
	}
	if d, ok := checkLineCount(&inv); !ok {
		diags = append(diags, d)
	}

	return diags
}

// ComputedTotal is the sum of extended prices, taxes and charges. It fails
// with ErrNonFiniteAmount when any amount is NaN or infinite.
func ComputedTotal(inv *models.Invoice) (decimal.Decimal, error) {
	sum := decimal.Zero
	add := func(f float64) error {
		d, err := amount(f)
		if err != nil {
			return err
		}
		sum = sum.Add(d)
		return nil
	}
	for _, l := range inv.Lines {
		if err := add(l.ExtPrice); err != nil {
			return decimal.Zero, fmt.Errorf("line %d: %w", l.LineNo, err)
		}
	}
	for _, t := range inv.Tax {
		if err := add(t.Amount); err != nil {
			return decimal.Zero, fmt.Errorf("tax %s: %w", t.Type, err)
		}
	}
	for _, c := range inv.Charges {
		if err := add(c.Amount); err != nil {
			return decimal.Zero, fmt.Errorf("charge %s: %w", c.Type, err)
		}
	}
	return sum, nil
}

func amount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonFiniteAmount
	}
	return decimal.NewFromFloat(f), nil
}

func checkTotals(inv *models.Invoice) (models.Diagnostic, bool) {
	if inv.Totals.InvoiceTotal == nil {
		return models.Diagnostic{Code: CodeTotals, Message: "Missing invoice total (TDS)."}, false
	}

	declared, err := amount(*inv.Totals.InvoiceTotal)
	if err != nil {
		return models.Diagnostic{Code: CodeTotals, Message: "Invoice total (TDS) is not a finite number."}, false
	}
	computed, err := ComputedTotal(inv)
	if err != nil {
		return models.Diagnostic{
			Code:    CodeTotals,
			Message: fmt.Sprintf("Totals cannot be computed: %v.", err),
		}, false
	}
	if computed.Sub(declared).Abs().GreaterThan(Tolerance) {
		return models.Diagnostic{
			Code: CodeTotals,
			Message: fmt.Sprintf("Totals mismatch: lines+tax+charges=%s vs TDS=%s.",
				computed.StringFixed(2), declared.StringFixed(2)),
		}, false
	}
	return models.Diagnostic{}, true
}

func checkLineCount(inv *models.Invoice) (models.Diagnostic, bool) {
	if inv.Totals.LineCount == nil || *inv.Totals.LineCount == len(inv.Lines) {
		return models.Diagnostic{}, true
	}
	return models.Diagnostic{
		Code:    CodeLineCount,
		Message: fmt.Sprintf("Line count mismatch: CTT=%d vs actual=%d.", *inv.Totals.LineCount, len(inv.Lines)),
	}, false
}
