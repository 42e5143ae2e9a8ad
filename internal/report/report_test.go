package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invoiceagent/pkg/models"
)

func sampleRecords() []models.ProcessingRecord {
	return []models.ProcessingRecord{
		{
			ID:            2,
			FilePath:      "data/inbound/bad.edi",
			VendorID:      "GLOBEX-1",
			InvoiceNumber: "UNKNOWN",
			Status:        models.StatusRejected,
			InvoiceTotal:  10,
			Errors: []models.Diagnostic{
				{Code: "BIG02", Message: "Missing invoice number (BIG02)."},
				{Code: "IT1", Message: "No line items (IT1)."},
			},
			CreatedAt: time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:            1,
			FilePath:      "data/inbound/good.edi",
			VendorID:      "ACME-42",
			InvoiceNumber: "INV-100",
			Status:        models.StatusPosted,
			InvoiceTotal:  27.5,
			AnomalyScore:  models.Float64(1.5),
			ERPID:         "abc123",
			CreatedAt:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestValues(t *testing.T) {
	recs := sampleRecords()

	row := Values(recs[1])
	require.Len(t, row, len(Headers))
	assert.Equal(t, []interface{}{
		int64(1), "2024-01-15 12:00:00", "data/inbound/good.edi", "ACME-42", "INV-100",
		models.StatusPosted, 27.5, 1.5, "abc123", "",
	}, row)

	row = Values(recs[0])
	assert.Equal(t, "", row[7], "missing anomaly is an empty cell")
	assert.Equal(t, "BIG02: Missing invoice number (BIG02).; IT1: No line items (IT1).", row[9])
}

func TestValues_ZeroTime(t *testing.T) {
	assert.Equal(t, "", Values(models.ProcessingRecord{})[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "UNKNOWN", rows[1][4])
	assert.Equal(t, "27.5", rows[2][6])
	assert.Equal(t, "abc123", rows[2][8])
}

func TestSaveXLSX_EmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, SaveXLSX(path, "History", nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Headers, rows[0])
}

func TestSaveXLSX_BadPath(t *testing.T) {
	err := SaveXLSX(filepath.Join(t.TempDir(), "missing", "h.xlsx"), "", nil)
	assert.Error(t, err)
}
