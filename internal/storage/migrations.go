package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Exec returns a migration body running queries in order.
func Exec(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}
		return nil
	}
}

var historyMigrations = []Migration{
	{
		Version:     1,
		Description: "Processing history",
		Up: Exec(
			`CREATE TABLE IF NOT EXISTS invoices (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_path TEXT,
				vendor_id TEXT,
				invoice_number TEXT,
				status TEXT,
				amount REAL,
				anomaly REAL,
				errors TEXT,
				erp_id TEXT,
				created_at REAL
			)`,
		),
	},
	{
		Version:     2,
		Description: "History lookup indexes",
		Up: Exec(
			`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices(vendor_id)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_created ON invoices(created_at)`,
		),
	},
}

// SchemaVersion reads PRAGMA user_version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

// Migrate applies every migration newer than the database's user_version,
// each in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, migrations []Migration) error {
	currentVersion, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}
	}
	return nil
}
