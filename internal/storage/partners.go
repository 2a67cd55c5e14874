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

const partnerColumns = `id, type, name, vat_id, website, aliases, ibans, email_domains,
	learned_patterns, created_at, updated_at, deleted_at`

// SavePartner upserts a partner.
func (s *SQLiteStore) SavePartner(ctx context.Context, partner *model.Partner) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePartner(partner); err != nil {
		return err
	}

	aliases, err := marshalList(partner.Aliases)
	if err != nil {
		return err
	}
	ibans, err := marshalList(partner.IBANs)
	if err != nil {
		return err
	}
	domains, err := marshalList(partner.EmailDomains)
	if err != nil {
		return err
	}
	patterns, err := marshalList(partner.LearnedPatterns)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = now
	}
	partner.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO partners (id, type, name, vat_id, website, aliases, ibans, email_domains, learned_patterns, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			vat_id = excluded.vat_id,
			website = excluded.website,
			aliases = excluded.aliases,
			ibans = excluded.ibans,
			email_domains = excluded.email_domains,
			learned_patterns = excluded.learned_patterns,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		partner.ID, string(partner.Type), partner.Name, partner.VATID, partner.Website,
		aliases, ibans, domains, patterns,
		partner.CreatedAt, partner.UpdatedAt, nullTime(partner.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to save partner %s: %w", partner.ID, err)
	}
	return nil
}

// GetPartner loads one partner by ID, including soft-deleted ones.
func (s *SQLiteStore) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = ?`, id)
	return scanPartner(row)
}

// ListPartners returns all live partners of the given type.
func (s *SQLiteStore) ListPartners(ctx context.Context, partnerType model.PartnerType) ([]model.Partner, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners
		 WHERE type = ? AND deleted_at IS NULL
		 ORDER BY name`, string(partnerType))
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var partners []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, *p)
	}
	return partners, rows.Err()
}

// DeletePartner soft-deletes by default; hard deletion removes the row.
func (s *SQLiteStore) DeletePartner(ctx context.Context, id string, hard bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	var result sql.Result
	var err error
	if hard {
		result, err = s.db.ExecContext(ctx, `DELETE FROM partners WHERE id = ?`, id)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE partners SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
			time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete partner %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: partner %s", common.ErrNotFound, id)
	}
	return nil
}

// PartnerHasFileHistory reports whether any live file resolves to the
// partner.
func (s *SQLiteStore) PartnerHasFileHistory(ctx context.Context, partnerID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(partnerID, "partnerID"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE partner_id = ? AND deleted_at IS NULL`,
		partnerID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count partner files: %w", err)
	}
	return count > 0, nil
}

func scanPartner(row scanner) (*model.Partner, error) {
	var p model.Partner
	var pType string
	var vatID, website sql.NullString
	var aliases, ibans, domains, patterns sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(&p.ID, &pType, &p.Name, &vatID, &website,
		&aliases, &ibans, &domains, &patterns,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan partner: %w", err)
	}

	p.Type = model.PartnerType(pType)
	p.VATID = vatID.String
	p.Website = website.String
	p.DeletedAt = scanTimePtr(deletedAt)

	if err := unmarshalList(aliases, &p.Aliases); err != nil {
		return nil, err
	}
	if err := unmarshalList(ibans, &p.IBANs); err != nil {
		return nil, err
	}
	if err := unmarshalList(domains, &p.EmailDomains); err != nil {
		return nil, err
	}
	if err := unmarshalList(patterns, &p.LearnedPatterns); err != nil {
		return nil, err
	}
	return &p, nil
}
