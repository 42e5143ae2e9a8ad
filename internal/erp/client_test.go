package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceagent/pkg/models"
)

var testBill = models.VendorBill{
	VendorID:      "ACME",
	InvoiceNumber: "INV-100",
	InvoiceDate:   "2024-01-15",
	Currency:      "USD",
	Lines: []models.BillLine{
		{Description: "Item WIDGET", Qty: 2, UnitPrice: 10, GLAccount: "6100 - Office Supplies"},
	},
}

func TestPostVendorBill(t *testing.T) {
	var got models.VendorBill
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/vendor-bills", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL+"/", time.Second).PostVendorBill(context.Background(), testBill)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, testBill, got)
}

func TestPostVendorBill_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad bill"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).PostVendorBill(context.Background(), testBill)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPostFailed)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, `{"detail":"bad bill"}`, httpErr.Body)
	assert.EqualError(t, err, `erp: HTTP 422: {"detail":"bad bill"}`)
}

func TestPostVendorBill_BadResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"missing id", `{"ok":true}`, ErrMissingID},
		{"not json", `<html>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).PostVendorBill(context.Background(), testBill)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestPostVendorBill_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).PostVendorBill(context.Background(), testBill)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPostFailed)
}

func TestDryRun(t *testing.T) {
	d := DryRun{Now: func() time.Time { return time.Unix(1700000000, 0) }}

	id, err := d.PostVendorBill(context.Background(), testBill)
	require.NoError(t, err)
	assert.Equal(t, "DEMO-1700000000", id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.PostVendorBill(ctx, testBill)
	assert.ErrorIs(t, err, context.Canceled)
}
