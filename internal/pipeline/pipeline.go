// Package pipeline runs one inbound X12 810 file through parsing, enrichment,
// validation, anomaly scoring and ERP posting, and records the outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoiceagent/internal/explain"
	"invoiceagent/internal/invoice"
	"invoiceagent/internal/logger"
	"invoiceagent/internal/metrics"
	"invoiceagent/internal/x12"
	"invoiceagent/pkg/models"
	"invoiceagent/pkg/services"
)

const (
	// DefaultVendor is used for bills whose invoice names no remit-to party.
	DefaultVendor = "ACME"

	// DefaultInvoiceNumber is recorded when BIG02 is missing.
	DefaultInvoiceNumber = "UNKNOWN"

	// DefaultCurrency is used when the invoice carries none.
	DefaultCurrency = "USD"

	// CodeERPPost marks an invoice the ERP refused.
	CodeERPPost = "ERP_POST"

	// StatusErrored is counted for files that fail with an I/O error.
	StatusErrored = "ERRORED"

	// snippetLimit caps the raw EDI handed to the explainer.
	snippetLimit = 2000
)

// ErrNoPoster is returned by New when no ERP poster is given.
var ErrNoPoster = errors.New("pipeline requires an ERP poster")

// Config holds the filesystem and GL settings of a pipeline.
type Config struct {
	ProcessedDir     string
	RejectsDir       string
	DefaultGLAccount string

	// Now defaults to time.Now. Used for the fallback invoice date.
	Now func() time.Time
}

// Deps are the collaborators of a pipeline. Only Poster is required.
type Deps struct {
	Enricher  services.Enricher
	Scorer    services.AnomalyScorer
	Explainer services.Explainer
	Poster    services.BillPoster
	History   services.HistoryRecorder
	Metrics   *metrics.Pipeline
}

// Result is the outcome of processing one file.
type Result struct {
	RunID         string                           `json:"run_id"`
	FilePath      string                           `json:"file_path"`
	Status        string                           `json:"status"`
	InvoiceNumber string                           `json:"invoice_number"`
	VendorID      string                           `json:"vendor_id"`
	ERPID         string                           `json:"erp_id,omitempty"`
	Anomaly       float64                          `json:"anomaly"`
	Diagnostics   []models.Diagnostic              `json:"diagnostics"`
	Warnings      []models.ParseWarning            `json:"warnings,omitempty"`
	ArtifactPath  string                           `json:"artifact_path,omitempty"`
	Duration      time.Duration                    `json:"duration"`
	Document      *models.CanonicalInvoiceDocument `json:"-"`
}

// Posted reports whether the ERP accepted the invoice.
func (r *Result) Posted() bool {
	return r != nil && r.Status == models.StatusPosted
}

// Pipeline processes inbound files. It is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	cfg       Config
	deps      Deps
	validator *invoice.Validator
	log       zerolog.Logger
}

// New creates a pipeline. Missing optional collaborators are skipped, except
// the explainer which falls back to the built-in templates.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Poster == nil {
		return nil, ErrNoPoster
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Explainer == nil {
		deps.Explainer = explain.New(nil, "")
	}
	return &Pipeline{
		cfg:       cfg,
		deps:      deps,
		validator: invoice.NewValidator(),
		log:       logger.WithComponent("pipeline"),
	}, nil
}

// Process runs path through the pipeline. Business failures, including ERP
// rejections, are reported through Result.Status and Result.Diagnostics. The
// returned error is reserved for I/O failures: an unreadable input, an
// artifact that cannot be written, or a history store that refuses the record.
func (p *Pipeline) Process(ctx context.Context, path string) (res *Result, err error) {
	start := time.Now()
	res = &Result{
		RunID:    uuid.NewString(),
		FilePath: path,
	}
	defer func() {
		if err != nil {
			p.deps.Metrics.IncrementProcessed(StatusErrored)
		}
	}()
	log := logger.WithFile("pipeline", path).With().Str("run_id", res.RunID).Logger()

	raw, err := os.ReadFile(path)
	if err != nil {
		return res, invoice.NewProcessingError("read", path, fmt.Errorf("%w: %w", invoice.ErrReadFailed, err), "")
	}
	text := strings.ToValidUTF8(string(raw), "")

	res.Document, res.Warnings = x12.ParseWithWarnings(text)
	p.deps.Metrics.AddParseWarnings(len(res.Warnings))
	for _, w := range res.Warnings {
		log.Warn().Str("tag", w.Tag).Int("segment", w.Segment).Str("raw", w.Raw).Msg(w.Reason)
	}

	inv := &res.Document.Invoice
	res.VendorID = stringOr(inv.VendorID(), DefaultVendor)
	res.InvoiceNumber = stringOr(inv.InvoiceNumber, DefaultInvoiceNumber)
	total := 0.0
	if inv.Totals.InvoiceTotal != nil {
		total = *inv.Totals.InvoiceTotal
	}

	inv.Enrichment = p.enrich(res.VendorID)
	gl := p.cfg.DefaultGLAccount
	if inv.Enrichment != nil && inv.Enrichment.GLSuggestion != "" {
		gl = inv.Enrichment.GLSuggestion
	}
	for i := range inv.Lines {
		if inv.Lines[i].GLAccount == "" {
			inv.Lines[i].GLAccount = gl
		}
	}

	res.Diagnostics = p.validator.Validate(res.Document)

	if p.deps.Scorer != nil {
		res.Anomaly = p.deps.Scorer.Score(ctx, res.VendorID, total, len(inv.Lines), res.InvoiceNumber)
	}
	inv.Anomaly = models.Float64(res.Anomaly)
	p.deps.Metrics.ObserveAnomalyScore(res.Anomaly)

	if len(res.Diagnostics) > 0 {
		res.Status = models.StatusRejected
		inv.Explanation = p.deps.Explainer.Explain(ctx, res.Diagnostics, truncate(text, snippetLimit))
	} else {
		p.post(ctx, res, log)
	}

	dir := p.cfg.ProcessedDir
	if res.Status != models.StatusPosted {
		dir = p.cfg.RejectsDir
	}
	res.ArtifactPath, err = writeArtifact(dir, path, res.Document)
	if err != nil {
		return res, invoice.NewProcessingError("write", path, fmt.Errorf("%w: %w", invoice.ErrArtifactWrite, err), dir)
	}

	if err := p.record(ctx, res, total); err != nil {
		return res, invoice.WrapProcessingError("record", path, err, "")
	}

	res.Duration = time.Since(start)
	p.observe(res)

	log.Info().
		Str("status", res.Status).
		Str("vendor_id", res.VendorID).
		Str("invoice_number", res.InvoiceNumber).
		Str("erp_id", res.ERPID).
		Float64("anomaly", res.Anomaly).
		Strs("codes", invoice.Codes(res.Diagnostics)).
		Dur("duration", res.Duration).
		Msg("Invoice processed")

	return res, nil
}

func (p *Pipeline) enrich(vendorID string) *models.Enrichment {
	if p.deps.Enricher == nil {
		return nil
	}
	return p.deps.Enricher.Enrich(vendorID)
}

func (p *Pipeline) post(ctx context.Context, res *Result, log zerolog.Logger) {
	bill := p.bill(res)
	id, err := p.deps.Poster.PostVendorBill(ctx, bill)
	if err != nil {
		log.Error().Err(err).Str("invoice_number", bill.InvoiceNumber).Msg("ERP post failed")
		p.deps.Metrics.IncrementERPPost("error")
		res.Status = models.StatusRejected
		res.Diagnostics = append(res.Diagnostics, models.Diagnostic{Code: CodeERPPost, Message: err.Error()})
		return
	}
	p.deps.Metrics.IncrementERPPost("ok")
	res.Status = models.StatusPosted
	res.ERPID = id
}

// bill builds the ERP payload. The invoice date falls back to today.
func (p *Pipeline) bill(res *Result) models.VendorBill {
	inv := &res.Document.Invoice
	bill := models.NewVendorBill(inv, p.cfg.DefaultGLAccount)
	bill.VendorID = res.VendorID
	bill.InvoiceNumber = res.InvoiceNumber
	if bill.InvoiceDate == "" {
		bill.InvoiceDate = p.cfg.Now().Format(time.DateOnly)
	}
	bill.Currency = stringOr(bill.Currency, DefaultCurrency)
	return bill
}

func (p *Pipeline) record(ctx context.Context, res *Result, total float64) error {
	if p.deps.History == nil {
		return nil
	}
	_, err := p.deps.History.RecordInvoice(ctx, models.ProcessingRecord{
		FilePath:      res.FilePath,
		VendorID:      res.VendorID,
		InvoiceNumber: res.InvoiceNumber,
		Status:        res.Status,
		InvoiceTotal:  total,
		AnomalyScore:  models.Float64(res.Anomaly),
		Errors:        res.Diagnostics,
		ERPID:         res.ERPID,
	})
	return err
}

func (p *Pipeline) observe(res *Result) {
	m := p.deps.Metrics
	m.IncrementProcessed(res.Status)
	for _, d := range res.Diagnostics {
		m.IncrementDiagnostic(d.Code)
	}
	m.ObserveProcessLatency(res.Duration)
}

// ArtifactPath returns where the JSON document for src is written inside dir.
func ArtifactPath(dir, src string) string {
	return filepath.Join(dir, filepath.Base(src)+".json")
}

func writeArtifact(dir, src string, doc *models.CanonicalInvoiceDocument) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	out := ArtifactPath(dir, src)
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
