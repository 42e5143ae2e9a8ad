// Package report renders the processing history as spreadsheet rows and
// writes it to xlsx workbooks.
package report

import (
	"strings"
	"time"

	"invoiceagent/pkg/models"
)

// Headers are the column titles shared by every history export.
var Headers = []string{
	"ID", "Processed", "File", "Vendor", "Invoice", "Status",
	"Total", "Anomaly", "ERP ID", "Errors",
}

// TimeLayout formats the Processed column.
const TimeLayout = "2006-01-02 15:04:05"

// Values converts rec to one row of cell values, in Headers order.
// A missing anomaly score is an empty cell.
func Values(rec models.ProcessingRecord) []interface{} {
	var anomaly interface{} = ""
	if rec.AnomalyScore != nil {
		anomaly = *rec.AnomalyScore
	}
	return []interface{}{
		rec.ID,                    // A: ID
		formatTime(rec.CreatedAt), // B: Processed
		rec.FilePath,              // C: File
		rec.VendorID,              // D: Vendor
		rec.InvoiceNumber,         // E: Invoice
		rec.Status,                // F: Status
		rec.InvoiceTotal,          // G: Total
		anomaly,                   // H: Anomaly
		rec.ERPID,                 // I: ERP ID
		ErrorSummary(rec.Errors),  // J: Errors
	}
}

// ErrorSummary joins diagnostics as "CODE: message" separated by "; ".
func ErrorSummary(diags []models.Diagnostic) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
