// Package anomaly scores invoice amounts against each vendor's recent history
// with a rolling z-score.
package anomaly

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoiceagent/internal/logger"
)

const (
	// MaxHistory is the number of amounts kept per vendor.
	MaxHistory = 50

	// MinSamples is the history length below which scores are neutral.
	MinSamples = 5

	unknownVendor = "UNKNOWN"
)

// ErrNotConfigured is returned by History and Reset when no store is set.
var ErrNotConfigured = errors.New("anomaly history store not configured")

// Key returns the history key for vendorID.
func Key(vendorID string) string {
	if vendorID == "" {
		vendorID = unknownVendor
	}
	return "vendor:" + vendorID + ":amounts"
}

// Scorer computes z-scores. A Scorer without a store always scores 0.
type Scorer struct {
	store History
	log   zerolog.Logger
}

// NewScorer creates a scorer over store, which may be nil.
func NewScorer(store History) *Scorer {
	return &Scorer{
		store: store,
		log:   logger.WithComponent("anomaly"),
	}
}

// Score records amount in the vendor history and returns its z-score against
// the retained amounts, rounded to 2 decimals. The score is 0 when fewer than
// MinSamples amounts are known, when they do not vary, or when the store fails.
func (s *Scorer) Score(ctx context.Context, vendorID string, amount float64, lineCount int, invoiceKey string) float64 {
	if s == nil || s.store == nil {
		return 0
	}

	values, err := s.store.Push(ctx, Key(vendorID), amount, MaxHistory)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("vendor_id", vendorID).
			Str("invoice", invoiceKey).
			Msg("Anomaly history unavailable, scoring neutral")
		return 0
	}

	score := ZScore(values, amount)
	s.log.Debug().
		Str("vendor_id", vendorID).
		Str("invoice", invoiceKey).
		Float64("amount", amount).
		Int("line_count", lineCount).
		Int("samples", len(values)).
		Float64("score", score).
		Msg("Invoice amount scored")
	return score
}

// History returns up to limit recorded amounts for vendorID, newest first.
func (s *Scorer) History(ctx context.Context, vendorID string, limit int) ([]float64, error) {
	if s == nil || s.store == nil {
		return nil, ErrNotConfigured
	}
	return s.store.Range(ctx, Key(vendorID), limit)
}

// Reset deletes the recorded amounts for vendorID.
func (s *Scorer) Reset(ctx context.Context, vendorID string) error {
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}
	if err := s.store.Delete(ctx, Key(vendorID)); err != nil {
		return err
	}
	s.log.Info().Str("vendor_id", vendorID).Msg("Vendor history reset")
	return nil
}

// ZScore is (amount-mean)/pstdev over values, rounded to 2 decimals.
func ZScore(values []float64, amount float64) float64 {
	if len(values) < MinSamples {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	stdev := math.Sqrt(sq / float64(len(values)))
	if stdev == 0 {
		return 0
	}

	z := (amount - mean) / stdev
	return decimal.NewFromFloat(z).Round(2).InexactFloat64()
}
