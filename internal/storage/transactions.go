package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
)

const transactionColumns = `id, hash, date, name, counterparty, counterparty_iban, reference,
	account_id, currency, amount_cents, partner_id, partner_type, partner_link_origin,
	partner_confidence, partner_suggestions, file_ids, rejected_file_ids,
	rejected_partner_ids, no_receipt_category_id, category_link_origin,
	category_suggestions, complete`

// SaveTransactions upserts a batch of transactions, skipping rows
// whose hash already exists so re-imports are idempotent.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
		(id, hash, date, name, counterparty, counterparty_iban, reference, account_id, currency, amount_cents, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		t := &transactions[i]
		if t.Hash == "" {
			t.Hash = t.GenerateHash()
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Hash, t.Date, t.Name, t.Counterparty, t.CounterpartyIBAN,
			t.Reference, t.AccountID, t.Currency, t.AmountCents, t.Complete); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransaction loads one transaction by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListIncompleteTransactions pages incomplete transactions by cursor.
// The cursor is the last processed ID; ordering by ID keeps paging
// stable when rows are inserted concurrently.
func (s *SQLiteStore) ListIncompleteTransactions(ctx context.Context, afterID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE complete = 0 AND id > ?
		 ORDER BY id
		 LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomplete transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// ListMatchedTransactions returns recently completed transactions that
// carry at least one connected file, newest first. Used by the review
// surface; not part of the service.Store contract.
func (s *SQLiteStore) ListMatchedTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE complete = 1 AND file_ids IS NOT NULL
		 ORDER BY date DESC, id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matched transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// UpdateTransactionResolution persists the mutable resolution state of
// one transaction. The immutable bank facts are never touched.
func (s *SQLiteStore) UpdateTransactionResolution(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	partnerSuggestions, err := marshalList(txn.PartnerSuggestions)
	if err != nil {
		return err
	}
	fileIDs, err := marshalList(txn.FileIDs)
	if err != nil {
		return err
	}
	rejectedFiles, err := marshalList(txn.RejectedFileIDs)
	if err != nil {
		return err
	}
	rejectedPartners, err := marshalList(txn.RejectedPartnerIDs)
	if err != nil {
		return err
	}
	categorySuggestions, err := marshalList(txn.CategorySuggestions)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			partner_id = ?, partner_type = ?, partner_link_origin = ?,
			partner_confidence = ?, partner_suggestions = ?,
			file_ids = ?, rejected_file_ids = ?, rejected_partner_ids = ?,
			no_receipt_category_id = ?, category_link_origin = ?,
			category_suggestions = ?, complete = ?
		WHERE id = ?`,
		txn.PartnerID, string(txn.PartnerType), string(txn.PartnerLinkOrigin),
		txn.PartnerMatchConfidence, partnerSuggestions,
		fileIDs, rejectedFiles, rejectedPartners,
		txn.NoReceiptCategoryID, string(txn.CategoryLinkOrigin),
		categorySuggestions, txn.Complete,
		txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, txn.ID)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var t model.Transaction
	var counterparty, counterpartyIBAN, reference, accountID, currency sql.NullString
	var partnerID, partnerType, partnerOrigin, categoryID, categoryOrigin sql.NullString
	var partnerSuggestions, fileIDs, rejectedFiles, rejectedPartners, categorySuggestions sql.NullString

	err := row.Scan(
		&t.ID, &t.Hash, &t.Date, &t.Name, &counterparty, &counterpartyIBAN,
		&reference, &accountID, &currency, &t.AmountCents,
		&partnerID, &partnerType, &partnerOrigin, &t.PartnerMatchConfidence,
		&partnerSuggestions, &fileIDs, &rejectedFiles, &rejectedPartners,
		&categoryID, &categoryOrigin, &categorySuggestions, &t.Complete)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Counterparty = counterparty.String
	t.CounterpartyIBAN = counterpartyIBAN.String
	t.Reference = reference.String
	t.AccountID = accountID.String
	t.Currency = currency.String
	t.PartnerID = partnerID.String
	t.PartnerType = model.PartnerType(partnerType.String)
	t.PartnerLinkOrigin = model.LinkOrigin(partnerOrigin.String)
	t.NoReceiptCategoryID = categoryID.String
	t.CategoryLinkOrigin = model.LinkOrigin(categoryOrigin.String)

	if err := unmarshalList(partnerSuggestions, &t.PartnerSuggestions); err != nil {
		return nil, err
	}
	if err := unmarshalList(fileIDs, &t.FileIDs); err != nil {
		return nil, err
	}
	if err := unmarshalList(rejectedFiles, &t.RejectedFileIDs); err != nil {
		return nil, err
	}
	if err := unmarshalList(rejectedPartners, &t.RejectedPartnerIDs); err != nil {
		return nil, err
	}
	if err := unmarshalList(categorySuggestions, &t.CategorySuggestions); err != nil {
		return nil, err
	}
	return &t, nil
}
