// Package erp posts accepted invoices to the ERP as vendor bills.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoiceagent/internal/logger"
	"invoiceagent/pkg/models"
)

// DefaultTimeout bounds one posting request.
const DefaultTimeout = 15 * time.Second

var (
	// ErrPostFailed is matched by every non-2xx ERP response.
	ErrPostFailed = errors.New("erp rejected vendor bill")

	// ErrMissingID is returned when a 2xx response carries no bill id.
	ErrMissingID = errors.New("erp response has no bill id")
)

// HTTPError reports a non-2xx ERP response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("erp: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("erp: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap returns ErrPostFailed.
func (e *HTTPError) Unwrap() error {
	return ErrPostFailed
}

// Client talks to the ERP vendor-bills endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for baseURL. A non-positive timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.WithComponent("erp-client"),
	}
}

type postResponse struct {
	ID string `json:"id"`
}

// PostVendorBill posts bill and returns the ERP-assigned id.
func (c *Client) PostVendorBill(ctx context.Context, bill models.VendorBill) (string, error) {
	body, err := json.Marshal(bill)
	if err != nil {
		return "", fmt.Errorf("failed to encode vendor bill: %w", err)
	}

	url := c.baseURL + "/vendor-bills"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to post vendor bill: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("url", url).
		Str("vendor_id", bill.VendorID).
		Str("invoice_number", bill.InvoiceNumber).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Vendor bill posted")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out postResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.ID == "" {
		return "", ErrMissingID
	}
	return out.ID, nil
}
