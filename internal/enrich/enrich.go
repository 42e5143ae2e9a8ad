// Package enrich attaches vendor metadata and a GL account suggestion to
// invoices, using a table of vendor-id heuristics.
package enrich

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"invoiceagent/internal/logger"
	"invoiceagent/pkg/models"
)

// DefaultGLSuggestion is returned for vendors no heuristic matches.
const DefaultGLSuggestion = "6200 - COGS"

// Heuristic maps a case-insensitive vendor-id substring to enrichment data.
type Heuristic struct {
	Match             string `yaml:"match"`
	models.Enrichment `yaml:",inline"`
}

// File is the on-disk heuristics format.
type File struct {
	Vendors   []Heuristic `yaml:"vendors"`
	DefaultGL string      `yaml:"default_gl"`
}

// DefaultHeuristics returns the built-in table.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		{
			Match: "ACME",
			Enrichment: models.Enrichment{
				Website:      "https://acme.example",
				Category:     "office",
				GLSuggestion: "6100 - Office Supplies",
			},
		},
	}
}

// Enricher looks vendors up in its heuristics table. It is safe for
// concurrent use once constructed.
type Enricher struct {
	heuristics []Heuristic
	defaultGL  string
	log        zerolog.Logger
}

// New creates an enricher over the given table, checked in order.
func New(heuristics []Heuristic) *Enricher {
	return &Enricher{
		heuristics: heuristics,
		defaultGL:  DefaultGLSuggestion,
		log:        logger.WithComponent("enrich"),
	}
}

// NewFromFile loads extra heuristics from a YAML file and places them ahead
// of the built-in table. An empty path yields the built-in table only.
func NewFromFile(path string) (*Enricher, error) {
	if path == "" {
		return New(DefaultHeuristics()), nil
	}

	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	e := New(append(f.Vendors, DefaultHeuristics()...))
	if f.DefaultGL != "" {
		e.defaultGL = f.DefaultGL
	}
	e.log.Info().
		Str("path", path).
		Int("heuristics", len(f.Vendors)).
		Msg("Loaded enrichment heuristics")
	return e, nil
}

// LoadFile parses a heuristics file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heuristics file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse heuristics file %s: %w", path, err)
	}
	for i, h := range f.Vendors {
		if strings.TrimSpace(h.Match) == "" {
			return nil, fmt.Errorf("heuristics file %s: vendor entry %d has no match", path, i)
		}
		f.Vendors[i].Website = NormalizeURL(h.Website)
	}
	return &f, nil
}

// Enrich returns metadata for vendorID, or nil for an empty vendor.
// Unknown vendors get only the default GL suggestion.
func (e *Enricher) Enrich(vendorID string) *models.Enrichment {
	if vendorID == "" {
		return nil
	}

	needle := strings.ToLower(vendorID)
	for _, h := range e.heuristics {
		if strings.Contains(needle, strings.ToLower(h.Match)) {
			out := h.Enrichment
			e.log.Debug().
				Str("vendor_id", vendorID).
				Str("match", h.Match).
				Str("gl_suggestion", out.GLSuggestion).
				Msg("Vendor matched heuristic")
			return &out
		}
	}

	e.log.Debug().Str("vendor_id", vendorID).Msg("No heuristic matched, using default GL")
	return &models.Enrichment{GLSuggestion: e.defaultGL}
}

// NormalizeURL adds an https scheme when missing and strips a trailing slash.
func NormalizeURL(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + strings.TrimLeft(u, "/")
	}
	return strings.TrimSuffix(u, "/")
}
