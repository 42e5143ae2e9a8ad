package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Diagnostic is one business-rule violation reported by the validator.
// It serializes as a [code, message] pair.
type Diagnostic struct {
	Code    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// MarshalJSON encodes the diagnostic as a two element array.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{d.Code, d.Message})
}

// UnmarshalJSON accepts the [code, message] form.
func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("diagnostic: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("diagnostic: expected [code, message], got %d elements", len(pair))
	}
	d.Code, d.Message = pair[0], pair[1]
	return nil
}

// ParseWarning records a segment element the parser could not interpret.
// The affected field is left unset or the entry is dropped.
type ParseWarning struct {
	Segment int    `json:"segment"` // 0-based position in the segment stream
	Tag     string `json:"tag"`
	Element int    `json:"element"` // 0-based element index after the tag
	Raw     string `json:"raw"`
	Reason  string `json:"reason"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("segment %d (%s) element %d %q: %s", w.Segment, w.Tag, w.Element, w.Raw, w.Reason)
}

// Processing statuses stored in the history.
const (
	StatusPosted   = "POSTED"
	StatusRejected = "REJECTED"
	StatusReady    = "READY"
)

// ProcessingRecord is one row of the processing history.
type ProcessingRecord struct {
	ID            int64        `json:"id"`
	FilePath      string       `json:"file_path"`
	VendorID      string       `json:"vendor_id"`
	InvoiceNumber string       `json:"invoice_number"`
	Status        string       `json:"status"`
	InvoiceTotal  float64      `json:"invoice_total"`
	AnomalyScore  *float64     `json:"anomaly_score,omitempty"`
	Errors        []Diagnostic `json:"validation_errors"`
	ERPID         string       `json:"erp_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
