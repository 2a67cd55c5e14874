package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
)

const attemptColumns = `id, queue_item_id, transaction_id, strategy, candidates_found,
	candidates_evaluated, matches_found, queries_issued, great_matches,
	best_score, errors, created_at, updated_at`

// GetAttempt loads the attempt record for one (queue item, transaction,
// strategy) triple.
func (s *SQLiteStore) GetAttempt(ctx context.Context, queueItemID, transactionID string, strategy model.StrategyID) (*model.SearchAttempt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(queueItemID, "queueItemID"); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM search_attempts
		 WHERE queue_item_id = ? AND transaction_id = ? AND strategy = ?`,
		queueItemID, transactionID, string(strategy))
	return scanAttempt(row)
}

// UpsertAttempt writes an attempt record. When a record already exists
// for the same (queue item, transaction, strategy) triple, the new
// counters merge into it and BestScore keeps the maximum seen. Safe
// without a transaction because the store holds a single connection.
func (s *SQLiteStore) UpsertAttempt(ctx context.Context, attempt *model.SearchAttempt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAttempt(attempt); err != nil {
		return err
	}

	existing, err := s.GetAttempt(ctx, attempt.QueueItemID, attempt.TransactionID, attempt.Strategy)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	record := attempt
	if existing != nil {
		existing.Merge(*attempt)
		record = existing
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	errList, err := marshalList(record.Errors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_attempts (id, queue_item_id, transaction_id, strategy, candidates_found, candidates_evaluated, matches_found, queries_issued, great_matches, best_score, errors, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue_item_id, transaction_id, strategy) DO UPDATE SET
			candidates_found = excluded.candidates_found,
			candidates_evaluated = excluded.candidates_evaluated,
			matches_found = excluded.matches_found,
			queries_issued = excluded.queries_issued,
			great_matches = excluded.great_matches,
			best_score = excluded.best_score,
			errors = excluded.errors,
			updated_at = excluded.updated_at`,
		record.ID, record.QueueItemID, record.TransactionID, string(record.Strategy),
		record.CandidatesFound, record.CandidatesEvaluated, record.MatchesFound,
		record.QueriesIssued, record.GreatMatches, record.BestScore,
		errList, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert search attempt: %w", err)
	}

	*attempt = *record
	return nil
}

// ListAttempts returns all attempt records for a transaction, newest
// first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, transactionID string) ([]model.SearchAttempt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM search_attempts
		 WHERE transaction_id = ? ORDER BY updated_at DESC, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query search attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []model.SearchAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row scanner) (*model.SearchAttempt, error) {
	var a model.SearchAttempt
	var strategy string
	var errList sql.NullString

	err := row.Scan(&a.ID, &a.QueueItemID, &a.TransactionID, &strategy,
		&a.CandidatesFound, &a.CandidatesEvaluated, &a.MatchesFound,
		&a.QueriesIssued, &a.GreatMatches, &a.BestScore, &errList,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search attempt: %w", err)
	}

	a.Strategy = model.StrategyID(strategy)
	if err := unmarshalList(errList, &a.Errors); err != nil {
		return nil, err
	}
	return &a, nil
}
