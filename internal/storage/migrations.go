package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the
// application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					name TEXT NOT NULL,
					counterparty TEXT,
					counterparty_iban TEXT,
					reference TEXT,
					account_id TEXT,
					currency TEXT,
					amount_cents INTEGER NOT NULL,
					partner_id TEXT,
					partner_type TEXT,
					partner_link_origin TEXT,
					partner_confidence REAL DEFAULT 0,
					partner_suggestions TEXT,
					file_ids TEXT,
					rejected_file_ids TEXT,
					rejected_partner_ids TEXT,
					no_receipt_category_id TEXT,
					category_link_origin TEXT,
					category_suggestions TEXT,
					complete INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_incomplete ON transactions(complete, id)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,

				`CREATE TABLE IF NOT EXISTS partners (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					name TEXT NOT NULL,
					vat_id TEXT,
					website TEXT,
					aliases TEXT,
					ibans TEXT,
					email_domains TEXT,
					learned_patterns TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					deleted_at DATETIME
				)`,
				`CREATE INDEX idx_partners_type ON partners(type)`,

				`CREATE TABLE IF NOT EXISTS files (
					id TEXT PRIMARY KEY,
					sha256 TEXT UNIQUE NOT NULL,
					file_name TEXT,
					extracted INTEGER DEFAULT 0,
					amount_cents INTEGER DEFAULT 0,
					currency TEXT,
					date DATETIME,
					counterparty TEXT,
					iban TEXT,
					invoice_number TEXT,
					text TEXT,
					partner_id TEXT,
					transaction_ids TEXT,
					source_message_id TEXT,
					precision_search_hint TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					deleted_at DATETIME
				)`,
				`CREATE INDEX idx_files_date ON files(date)`,
				`CREATE INDEX idx_files_message ON files(source_message_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					matched_partner_ids TEXT,
					learned_patterns TEXT,
					transaction_count INTEGER DEFAULT 0,
					receipt_lost INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Search queue and attempts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS search_queue (
					id TEXT PRIMARY KEY,
					scope TEXT NOT NULL,
					transaction_id TEXT,
					triggered_by TEXT NOT NULL,
					strategies TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					transactions_processed INTEGER DEFAULT 0,
					last_processed_transaction_id TEXT,
					candidates_found INTEGER DEFAULT 0,
					matches_found INTEGER DEFAULT 0,
					retry_count INTEGER DEFAULT 0,
					max_retries INTEGER DEFAULT 3,
					last_error TEXT,
					errors TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					started_at DATETIME,
					completed_at DATETIME
				)`,
				`CREATE INDEX idx_search_queue_status ON search_queue(status, created_at)`,

				`CREATE TABLE IF NOT EXISTS search_attempts (
					id TEXT PRIMARY KEY,
					queue_item_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					strategy TEXT NOT NULL,
					candidates_found INTEGER DEFAULT 0,
					candidates_evaluated INTEGER DEFAULT 0,
					matches_found INTEGER DEFAULT 0,
					queries_issued INTEGER DEFAULT 0,
					great_matches INTEGER DEFAULT 0,
					best_score REAL DEFAULT 0,
					errors TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(queue_item_id, transaction_id, strategy)
				)`,
				`CREATE INDEX idx_search_attempts_txn ON search_attempts(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Receipt-lost pseudo-category seed",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(
				`INSERT OR IGNORE INTO categories (id, name, receipt_lost) VALUES ('receipt-lost', 'Receipt lost', 1)`)
			if err != nil {
				return fmt.Errorf("failed to seed receipt-lost category: %w", err)
			}
			return nil
		},
	},
}

// SchemaVersion reports the applied schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to rollback migration", "error", rbErr)
			}
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to rollback migration", "error", rbErr)
			}
			return fmt.Errorf("failed to set schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
