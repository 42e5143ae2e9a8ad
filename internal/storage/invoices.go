package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"invoiceagent/pkg/models"
)

// ListFilter narrows ListInvoices. Zero values match everything.
type ListFilter struct {
	Status string
	Vendor string
	Limit  int
}

// RecordInvoice appends rec to the history and returns its row id.
// A zero CreatedAt is stamped with the current time.
func (s *SQLiteStorage) RecordInvoice(ctx context.Context, rec models.ProcessingRecord) (int64, error) {
	if rec.Status == "" {
		return 0, fmt.Errorf("%w: status must not be empty", ErrInvalidInput)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	diags := rec.Errors
	if diags == nil {
		diags = []models.Diagnostic{}
	}
	errorsJSON, err := json.Marshal(diags)
	if err != nil {
		return 0, fmt.Errorf("failed to encode validation errors: %w", err)
	}

	var anomaly sql.NullFloat64
	if rec.AnomalyScore != nil {
		anomaly = sql.NullFloat64{Float64: *rec.AnomalyScore, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (file_path, vendor_id, invoice_number, status, amount, anomaly, errors, erp_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FilePath, rec.VendorID, rec.InvoiceNumber, rec.Status, rec.InvoiceTotal,
		anomaly, string(errorsJSON), nullString(rec.ERPID), unixSeconds(rec.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record invoice: %w", err)
	}
	return res.LastInsertId()
}

// ListInvoices returns matching records, newest first.
func (s *SQLiteStorage) ListInvoices(ctx context.Context, filter ListFilter) ([]models.ProcessingRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, strings.ToUpper(filter.Status))
	}
	if filter.Vendor != "" {
		where = append(where, "vendor_id = ?")
		args = append(args, filter.Vendor)
	}

	query := `SELECT id, file_path, vendor_id, invoice_number, status, amount, anomaly, errors, erp_id, created_at FROM invoices`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []models.ProcessingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return out, nil
}

// CountByStatus returns the number of records per status.
func (s *SQLiteStorage) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanRecord(rows *sql.Rows) (models.ProcessingRecord, error) {
	var (
		rec                             models.ProcessingRecord
		filePath, vendor, number, erpID sql.NullString
		errorsJSON                      sql.NullString
		amount, anomaly, created        sql.NullFloat64
	)
	if err := rows.Scan(&rec.ID, &filePath, &vendor, &number, &rec.Status, &amount, &anomaly, &errorsJSON, &erpID, &created); err != nil {
		return rec, fmt.Errorf("failed to scan invoice: %w", err)
	}

	rec.FilePath = filePath.String
	rec.VendorID = vendor.String
	rec.InvoiceNumber = number.String
	rec.ERPID = erpID.String
	rec.InvoiceTotal = amount.Float64
	if anomaly.Valid {
		rec.AnomalyScore = models.Float64(anomaly.Float64)
	}
	if created.Valid {
		sec, frac := math.Modf(created.Float64)
		rec.CreatedAt = time.Unix(int64(sec), int64(frac*1e9))
	}
	rec.Errors = []models.Diagnostic{}
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &rec.Errors); err != nil {
			return rec, fmt.Errorf("failed to decode validation errors of invoice %d: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// unixSeconds matches the fractional epoch seconds the history has always stored.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
