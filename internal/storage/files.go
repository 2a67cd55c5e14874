package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
)

const fileColumns = `id, sha256, file_name, extracted, amount_cents, currency, date,
	counterparty, iban, invoice_number, text, partner_id, transaction_ids,
	source_message_id, precision_search_hint, created_at, deleted_at`

// SaveFile upserts a file record. The SHA256 uniqueness constraint is
// enforced by the schema; callers dedup via GetFileBySHA256 first.
func (s *SQLiteStore) SaveFile(ctx context.Context, file *model.File) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFile(file); err != nil {
		return err
	}

	txnIDs, err := marshalList(file.TransactionIDs)
	if err != nil {
		return err
	}

	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id, sha256, file_name, extracted, amount_cents, currency, date, counterparty, iban, invoice_number, text, partner_id, transaction_ids, source_message_id, precision_search_hint, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			extracted = excluded.extracted,
			amount_cents = excluded.amount_cents,
			currency = excluded.currency,
			date = excluded.date,
			counterparty = excluded.counterparty,
			iban = excluded.iban,
			invoice_number = excluded.invoice_number,
			text = excluded.text,
			partner_id = excluded.partner_id,
			transaction_ids = excluded.transaction_ids,
			source_message_id = excluded.source_message_id,
			precision_search_hint = excluded.precision_search_hint,
			deleted_at = excluded.deleted_at`,
		file.ID, file.SHA256, file.FileName, file.Extracted, file.AmountCents,
		file.Currency, file.Date, file.Counterparty, file.IBAN, file.InvoiceNumber,
		file.Text, file.PartnerID, txnIDs, file.SourceMessageID,
		file.PrecisionSearchHint, file.CreatedAt, nullTime(file.DeletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: file with sha256 %s", common.ErrDuplicateEntry, file.SHA256)
		}
		return fmt.Errorf("failed to save file %s: %w", file.ID, err)
	}
	return nil
}

// GetFile loads one live file by ID.
func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ? AND deleted_at IS NULL`, id)
	return scanFile(row)
}

// GetFileBySHA256 looks a file up by content hash, including
// soft-deleted ones so callers can revive instead of duplicating.
func (s *SQLiteStore) GetFileBySHA256(ctx context.Context, sha string) (*model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sha, "sha"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE sha256 = ?`, sha)
	return scanFile(row)
}

// GetFileByMessageID looks a live file up by its source mailbox
// message, so the same message is never downloaded twice.
func (s *SQLiteStore) GetFileByMessageID(ctx context.Context, messageID string) (*model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE source_message_id = ? AND deleted_at IS NULL
		 ORDER BY created_at LIMIT 1`, messageID)
	return scanFile(row)
}

// ReviveFile clears the soft-delete marker on a file.
func (s *SQLiteStore) ReviveFile(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET deleted_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to revive file %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", common.ErrNotFound, id)
	}
	return nil
}

// ListFilesNearDate returns extracted live files whose document date
// falls within windowDays of the given date.
func (s *SQLiteStore) ListFilesNearDate(ctx context.Context, date time.Time, windowDays int) ([]model.File, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if windowDays < 0 {
		return nil, fmt.Errorf("windowDays must not be negative, got %d", windowDays)
	}

	lo := date.AddDate(0, 0, -windowDays)
	hi := date.AddDate(0, 0, windowDays)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE extracted = 1 AND deleted_at IS NULL AND date >= ? AND date <= ?
		 ORDER BY date`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query files near date: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// SetPrecisionSearchHint annotates a file for forced re-evaluation by
// the downstream matching trigger.
func (s *SQLiteStore) SetPrecisionSearchHint(ctx context.Context, fileID, hint string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fileID, "fileID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET precision_search_hint = ? WHERE id = ?`, hint, fileID)
	if err != nil {
		return fmt.Errorf("failed to set precision search hint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", common.ErrNotFound, fileID)
	}
	return nil
}

func scanFile(row scanner) (*model.File, error) {
	var f model.File
	var fileName, currency, counterparty, iban, invoiceNumber sql.NullString
	var text, partnerID, sourceMessageID, hint sql.NullString
	var txnIDs sql.NullString
	var date, deletedAt sql.NullTime

	err := row.Scan(&f.ID, &f.SHA256, &fileName, &f.Extracted, &f.AmountCents,
		&currency, &date, &counterparty, &iban, &invoiceNumber, &text,
		&partnerID, &txnIDs, &sourceMessageID, &hint, &f.CreatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}

	f.FileName = fileName.String
	f.Currency = currency.String
	f.Counterparty = counterparty.String
	f.IBAN = iban.String
	f.InvoiceNumber = invoiceNumber.String
	f.Text = text.String
	f.PartnerID = partnerID.String
	f.SourceMessageID = sourceMessageID.String
	f.PrecisionSearchHint = hint.String
	if date.Valid {
		f.Date = date.Time
	}
	f.DeletedAt = scanTimePtr(deletedAt)

	if err := unmarshalList(txnIDs, &f.TransactionIDs); err != nil {
		return nil, err
	}
	return &f, nil
}
