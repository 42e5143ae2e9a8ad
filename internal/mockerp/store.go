package mockerp

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"invoiceagent/internal/storage"
	"invoiceagent/pkg/models"
)

// ErrBillNotFound is returned for unknown bill ids.
var ErrBillNotFound = errors.New("vendor bill not found")

var migrations = []storage.Migration{
	{
		Version:     1,
		Description: "Bills and bill lines",
		Up: storage.Exec(
			`CREATE TABLE IF NOT EXISTS bills (
				id TEXT PRIMARY KEY,
				vendor_id TEXT,
				inv_no TEXT,
				inv_date TEXT,
				currency TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS bill_lines (
				id TEXT,
				ln INTEGER,
				descr TEXT,
				qty REAL,
				price REAL,
				gl TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bill_lines_id ON bill_lines(id)`,
		),
	},
}

// BillID is the hex SHA-1 of "vendor_id|invoice_number", so reposting the
// same invoice yields the same id.
func BillID(vendorID, invoiceNumber string) string {
	sum := sha1.Sum([]byte(vendorID + "|" + invoiceNumber))
	return hex.EncodeToString(sum[:])
}

// StoredBill is a bill as read back from the database.
type StoredBill struct {
	ID string `json:"id"`
	models.VendorBill
}

// Store keeps bills in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens dbPath and applies pending migrations.
func OpenStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateBill stores bill and its lines, numbered from 1. Reposting an existing
// bill leaves it untouched. created reports whether the bill was new.
func (s *Store) CreateBill(ctx context.Context, bill models.VendorBill) (id string, created bool, err error) {
	id = BillID(bill.VendorID, bill.InvoiceNumber)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bills (id, vendor_id, inv_no, inv_date, currency) VALUES (?, ?, ?, ?, ?)`,
		id, bill.VendorID, bill.InvoiceNumber, bill.InvoiceDate, bill.Currency)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if n > 0 {
		for i, ln := range bill.Lines {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO bill_lines (id, ln, descr, qty, price, gl) VALUES (?, ?, ?, ?, ?, ?)`,
				id, i+1, ln.Description, ln.Qty, ln.UnitPrice, ln.GLAccount); err != nil {
				return "", false, fmt.Errorf("failed to insert bill line %d: %w", i+1, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit bill: %w", err)
	}
	return id, n > 0, nil
}

// GetBill reads a bill with its lines in line order.
func (s *Store) GetBill(ctx context.Context, id string) (*StoredBill, error) {
	out := &StoredBill{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT vendor_id, inv_no, inv_date, currency FROM bills WHERE id = ?`, id).
		Scan(&out.VendorID, &out.InvoiceNumber, &out.InvoiceDate, &out.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bill: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT descr, qty, price, gl FROM bill_lines WHERE id = ? ORDER BY ln`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill lines: %w", err)
	}
	defer rows.Close()

	out.Lines = []models.BillLine{}
	for rows.Next() {
		var ln models.BillLine
		if err := rows.Scan(&ln.Description, &ln.Qty, &ln.UnitPrice, &ln.GLAccount); err != nil {
			return nil, fmt.Errorf("failed to scan bill line: %w", err)
		}
		out.Lines = append(out.Lines, ln)
	}
	return out, rows.Err()
}
