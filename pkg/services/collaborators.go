package services

import (
	"context"

	"invoiceagent/pkg/models"
)

// Enricher attaches vendor metadata and a GL suggestion
type Enricher interface {
	// Enrich returns nil when nothing is known about an empty vendor id
	Enrich(vendorID string) *models.Enrichment
}

// AnomalyScorer rates an invoice amount against the vendor's history
type AnomalyScorer interface {
	// Score records the amount and returns its z-score; 0 means "not unusual" or "unknown"
	Score(ctx context.Context, vendorID string, amount float64, lineCount int, invoiceKey string) float64
}

// Explainer turns validation diagnostics into operator-facing text
type Explainer interface {
	Explain(ctx context.Context, diags []models.Diagnostic, snippet string) string
}

// BillPoster posts accepted invoices to the ERP
type BillPoster interface {
	// PostVendorBill returns the ERP-assigned bill id
	PostVendorBill(ctx context.Context, bill models.VendorBill) (string, error)
}

// HistoryRecorder persists one processing outcome
type HistoryRecorder interface {
	RecordInvoice(ctx context.Context, rec models.ProcessingRecord) (int64, error)
}
