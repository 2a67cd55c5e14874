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

// SaveCategory upserts a category. The receipt-lost flag and usage
// count survive updates to name and learned associations.
func (s *SQLiteStore) SaveCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.ID, "category.ID"); err != nil {
		return err
	}
	if err := validateString(category.Name, "category.Name"); err != nil {
		return err
	}

	partnerIDs, err := marshalList(category.MatchedPartnerIDs)
	if err != nil {
		return err
	}
	patterns, err := marshalList(category.LearnedPatterns)
	if err != nil {
		return err
	}

	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, matched_partner_ids, learned_patterns, transaction_count, receipt_lost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			matched_partner_ids = excluded.matched_partner_ids,
			learned_patterns = excluded.learned_patterns,
			receipt_lost = excluded.receipt_lost`,
		category.ID, category.Name, partnerIDs, patterns,
		category.TransactionCount, category.ReceiptLost, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save category %s: %w", category.ID, err)
	}
	return nil
}

// ListCategories returns all categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, matched_partner_ids, learned_patterns, transaction_count, receipt_lost, created_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var partnerIDs, patterns sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &partnerIDs, &patterns,
			&c.TransactionCount, &c.ReceiptLost, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if err := unmarshalList(partnerIDs, &c.MatchedPartnerIDs); err != nil {
			return nil, err
		}
		if err := unmarshalList(patterns, &c.LearnedPatterns); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// IncrementCategoryUsage bumps a category's transaction count by one.
func (s *SQLiteStore) IncrementCategoryUsage(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET transaction_count = transaction_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment category usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: category %s", common.ErrNotFound, id)
	}
	return nil
}

// GetCategory loads one category by ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var c model.Category
	var partnerIDs, patterns sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, matched_partner_ids, learned_patterns, transaction_count, receipt_lost, created_at
		FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &partnerIDs, &patterns,
			&c.TransactionCount, &c.ReceiptLost, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	if err := unmarshalList(partnerIDs, &c.MatchedPartnerIDs); err != nil {
		return nil, err
	}
	if err := unmarshalList(patterns, &c.LearnedPatterns); err != nil {
		return nil, err
	}
	return &c, nil
}
