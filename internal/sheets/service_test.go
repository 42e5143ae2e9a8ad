package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoiceagent/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0", want: "1AbC-d_9"},
		{url: "https://docs.google.com/spreadsheets/d/XYZ", want: "XYZ"},
		{url: "https://example.com/not-a-sheet", wantErr: true},
		{url: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := extractSpreadsheetID(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_CREDENTIALS", "")

	_, err := LoadCredentials("")
	assert.ErrorIs(t, err, ErrNoCredentials)

	t.Setenv("GOOGLE_CREDENTIALS", `{"type":"service_account"}`)
	creds, err := LoadCredentials("")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(creds))

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))
	creds, err = LoadCredentials(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(creds), "explicit path wins over the environment")

	_, err = LoadCredentials(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRanges(t *testing.T) {
	assert.Equal(t, "Invoices!A:J", columnRange("Invoices"))
	assert.Equal(t, "Invoices!A1:J1", headerRange("Invoices"))
}

// fakeSheetsAPI serves the handful of Sheets v4 calls AppendRecords makes.
type fakeSheetsAPI struct {
	mu           sync.Mutex
	sheetExists  bool
	headers      [][]interface{}
	appended     [][]interface{}
	batchUpdates int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		f.batchUpdates++
		f.sheetExists = true
		json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{
			Replies: []*sheets.Response{{
				AddSheet: &sheets.AddSheetResponse{
					Properties: &sheets.SheetProperties{SheetId: 7, Title: "Invoices"},
				},
			}},
		})

	case strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		json.NewEncoder(w).Encode(sheets.AppendValuesResponse{})

	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.headers = vr.Values
		json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})

	case strings.Contains(path, "/values/"):
		json.NewEncoder(w).Encode(sheets.ValueRange{Values: f.headers})

	default:
		resp := sheets.Spreadsheet{SpreadsheetId: "SHEET"}
		if f.sheetExists {
			resp.Sheets = []*sheets.Sheet{{Properties: &sheets.SheetProperties{SheetId: 7, Title: "Invoices"}}}
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestService(t *testing.T, api *fakeSheetsAPI) *Service {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := NewWithOptions(context.Background(),
		"https://docs.google.com/spreadsheets/d/SHEET/edit",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestAppendRecords(t *testing.T) {
	api := &fakeSheetsAPI{}
	svc := newTestService(t, api)
	ctx := context.Background()

	recs := []models.ProcessingRecord{
		{ID: 1, FilePath: "a.edi", VendorID: "ACME", InvoiceNumber: "INV-1", Status: models.StatusPosted, InvoiceTotal: 12.5},
		{ID: 2, FilePath: "b.edi", VendorID: "ACME", InvoiceNumber: "INV-2", Status: models.StatusRejected},
	}

	n, err := svc.AppendRecords(ctx, "Invoices", recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Sheet creation and header formatting.
	assert.Equal(t, 2, api.batchUpdates)
	require.Len(t, api.headers, 1)
	assert.Equal(t, "ID", api.headers[0][0])
	require.Len(t, api.appended, 2)
	assert.Equal(t, "INV-1", api.appended[0][4])

	// Second export finds the sheet and its headers in place.
	n, err = svc.AppendRecords(ctx, "Invoices", recs[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, api.batchUpdates)
	assert.Len(t, api.appended, 3)

	rows, err := svc.ReadRange(ctx, "Invoices!A1:J1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Status", rows[0][5])
}

func TestAppendRecords_Empty(t *testing.T) {
	api := &fakeSheetsAPI{sheetExists: true, headers: [][]interface{}{{"ID"}}}
	svc := newTestService(t, api)

	n, err := svc.AppendRecords(context.Background(), "Invoices", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, api.appended)
}

func TestNewWithOptions_BadURL(t *testing.T) {
	_, err := NewWithOptions(context.Background(), "https://example.com", option.WithoutAuthentication())
	assert.Error(t, err)
}
