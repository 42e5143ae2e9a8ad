package x12

import (
	"errors"
	"fmt"

	"invoiceagent/pkg/models"
)

// ErrMalformedElement is matched by every strict-mode parse failure.
var ErrMalformedElement = errors.New("malformed segment element")

// MalformedElementError reports the element that stopped a strict parse.
type MalformedElementError struct {
	Warning models.ParseWarning
}

func (e *MalformedElementError) Error() string {
	return fmt.Sprintf("x12: %s", e.Warning)
}

// Unwrap returns ErrMalformedElement.
func (e *MalformedElementError) Unwrap() error {
	return ErrMalformedElement
}
