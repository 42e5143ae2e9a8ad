package x12

import (
	"fmt"

	"github.com/rs/zerolog"

	"invoiceagent/internal/logger"
	"invoiceagent/pkg/models"
)

// DefaultTerms applies when no ITD segment supplies a due-day count.
const DefaultTerms = "NET30"

// Builder owns the document accumulated from one segment stream.
// A Builder is used for a single parse and is not safe for concurrent use.
type Builder struct {
	doc      *models.CanonicalInvoiceDocument
	warnings []models.ParseWarning
	strict   bool
	position int
	handlers map[string]interpreter
	log      zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithStrict makes Build fail on the first malformed element instead of
// collecting a warning.
func WithStrict(strict bool) Option {
	return func(b *Builder) {
		b.strict = strict
	}
}

// WithLogger overrides the component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// NewBuilder returns a builder holding an empty document.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		doc: &models.CanonicalInvoiceDocument{
			Invoice: models.Invoice{
				Lines:   []models.LineItem{},
				Tax:     []models.TaxEntry{},
				Charges: []models.ChargeEntry{},
			},
		},
		handlers: defaultInterpreters(),
		log:      logger.WithComponent("x12"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply folds one segment into the document. Unrecognized tags are ignored.
func (b *Builder) Apply(seg Segment) {
	if h, ok := b.handlers[seg.Tag]; ok {
		h(b, seg.Elements)
	}
	b.position++
}

// Document finalizes derived fields and returns the document.
func (b *Builder) Document() *models.CanonicalInvoiceDocument {
	if b.doc.Invoice.Terms == "" {
		b.doc.Invoice.Terms = DefaultTerms
	}
	return b.doc
}

// Warnings returns the malformed elements seen so far, in segment order.
func (b *Builder) Warnings() []models.ParseWarning {
	return b.warnings
}

// Build applies every segment of text and returns the finished document.
// In strict mode the first malformed element aborts the build.
func (b *Builder) Build(text string) (*models.CanonicalInvoiceDocument, error) {
	segments := Segments(text)
	for _, seg := range segments {
		b.Apply(seg)
		if b.strict && len(b.warnings) > 0 {
			return nil, &MalformedElementError{Warning: b.warnings[0]}
		}
	}

	doc := b.Document()
	b.log.Debug().
		Int("segments", len(segments)).
		Int("lines", len(doc.Invoice.Lines)).
		Int("warnings", len(b.warnings)).
		Msg("X12 810 document built")
	for _, w := range b.warnings {
		b.log.Debug().Str("warning", w.String()).Msg("Malformed element skipped")
	}
	return doc, nil
}

// warn records a malformed element of the segment being applied.
func (b *Builder) warn(tag string, element int, raw string, reason string) {
	b.warnings = append(b.warnings, models.ParseWarning{
		Segment: b.position,
		Tag:     tag,
		Element: element,
		Raw:     raw,
		Reason:  reason,
	})
}

// Parse converts X12 810 text into a canonical document. Malformed elements
// leave their field unset; use ParseWithWarnings to see them.
func Parse(text string) *models.CanonicalInvoiceDocument {
	doc, _ := ParseWithWarnings(text)
	return doc
}

// ParseWithWarnings is Parse plus the list of elements that could not be interpreted.
func ParseWithWarnings(text string) (*models.CanonicalInvoiceDocument, []models.ParseWarning) {
	b := NewBuilder()
	doc, _ := b.Build(text)
	return doc, b.Warnings()
}

// ParseStrict fails with a *MalformedElementError on the first malformed element.
func ParseStrict(text string) (*models.CanonicalInvoiceDocument, error) {
	doc, err := NewBuilder(WithStrict(true)).Build(text)
	if err != nil {
		return nil, fmt.Errorf("parse 810: %w", err)
	}
	return doc, nil
}
