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

const queueColumns = `id, scope, transaction_id, triggered_by, strategies, status,
	transactions_processed, last_processed_transaction_id, candidates_found,
	matches_found, retry_count, max_retries, last_error, errors,
	created_at, updated_at, started_at, completed_at`

// CreateQueueItem inserts a new search queue item. Defaults are filled
// in for ID, status, strategies, and retry budget.
func (s *SQLiteStore) CreateQueueItem(ctx context.Context, item *model.SearchQueueItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = model.QueueStatusPending
	}
	if len(item.Strategies) == 0 {
		item.Strategies = model.DefaultStrategies()
	}
	if item.MaxRetries == 0 {
		item.MaxRetries = 3
	}
	if err := validateQueueItem(item); err != nil {
		return err
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	strategies, err := marshalList(item.Strategies)
	if err != nil {
		return err
	}
	errList, err := marshalList(item.Errors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_queue (id, scope, transaction_id, triggered_by, strategies, status, transactions_processed, last_processed_transaction_id, candidates_found, matches_found, retry_count, max_retries, last_error, errors, created_at, updated_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Scope), item.TransactionID, string(item.TriggeredBy),
		strategies, string(item.Status),
		item.TransactionsProcessed, item.LastProcessedTransactionID,
		item.CandidatesFound, item.MatchesFound,
		item.RetryCount, item.MaxRetries, item.LastError, errList,
		item.CreatedAt, item.UpdatedAt,
		nullTime(item.StartedAt), nullTime(item.CompletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: queue item %s", common.ErrDuplicateEntry, item.ID)
		}
		return fmt.Errorf("failed to create queue item: %w", err)
	}
	return nil
}

// GetQueueItem loads one queue item by ID.
func (s *SQLiteStore) GetQueueItem(ctx context.Context, id string) (*model.SearchQueueItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM search_queue WHERE id = ?`, id)
	return scanQueueItem(row)
}

// ClaimOldestPending transitions the oldest pending item to processing
// and returns it. The UPDATE re-checks status so a concurrent claimer
// loses cleanly. Returns common.ErrNoPendingWork when the queue is
// idle.
func (s *SQLiteStore) ClaimOldestPending(ctx context.Context) (*model.SearchQueueItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM search_queue
		 WHERE status = 'pending' ORDER BY created_at, rowid LIMIT 1`)
	item, err := scanQueueItem(row)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoPendingWork
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE search_queue SET status = 'processing', started_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'pending'`, now, now, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue item %s: %w", item.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the race; nothing else is pending right now.
		return nil, common.ErrNoPendingWork
	}

	item.Status = model.QueueStatusProcessing
	item.StartedAt = &now
	item.UpdatedAt = now
	return item, nil
}

// UpdateQueueItem persists status, progress counters, and error state.
func (s *SQLiteStore) UpdateQueueItem(ctx context.Context, item *model.SearchQueueItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateQueueItem(item); err != nil {
		return err
	}

	errList, err := marshalList(item.Errors)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE search_queue SET
			status = ?,
			transactions_processed = ?,
			last_processed_transaction_id = ?,
			candidates_found = ?,
			matches_found = ?,
			retry_count = ?,
			last_error = ?,
			errors = ?,
			updated_at = ?,
			started_at = ?,
			completed_at = ?
		WHERE id = ?`,
		string(item.Status),
		item.TransactionsProcessed, item.LastProcessedTransactionID,
		item.CandidatesFound, item.MatchesFound,
		item.RetryCount, item.LastError, errList,
		item.UpdatedAt, nullTime(item.StartedAt), nullTime(item.CompletedAt),
		item.ID)
	if err != nil {
		return fmt.Errorf("failed to update queue item %s: %w", item.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: queue item %s", common.ErrNotFound, item.ID)
	}
	return nil
}

// RequeueItem returns an in-flight item to pending with all progress
// counters intact. Schedule-triggered items are updated in place.
// Event-triggered items are deleted and recreated under a fresh ID so
// their creation hook fires again straight away.
func (s *SQLiteStore) RequeueItem(ctx context.Context, item *model.SearchQueueItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateQueueItem(item); err != nil {
		return err
	}

	if item.TriggeredBy != model.TriggerEvent {
		item.Status = model.QueueStatusPending
		item.StartedAt = nil
		return s.UpdateQueueItem(ctx, item)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin requeue transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM search_queue WHERE id = ?`, item.ID); err != nil {
		return fmt.Errorf("failed to delete queue item %s: %w", item.ID, err)
	}

	strategies, err := marshalList(item.Strategies)
	if err != nil {
		return err
	}
	errList, err := marshalList(item.Errors)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	newID := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO search_queue (id, scope, transaction_id, triggered_by, strategies, status, transactions_processed, last_processed_transaction_id, candidates_found, matches_found, retry_count, max_retries, last_error, errors, created_at, updated_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		newID, string(item.Scope), item.TransactionID, string(item.TriggeredBy),
		strategies,
		item.TransactionsProcessed, item.LastProcessedTransactionID,
		item.CandidatesFound, item.MatchesFound,
		item.RetryCount, item.MaxRetries, item.LastError, errList,
		now, now); err != nil {
		return fmt.Errorf("failed to recreate queue item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit requeue: %w", err)
	}

	item.ID = newID
	item.Status = model.QueueStatusPending
	item.StartedAt = nil
	item.CompletedAt = nil
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func scanQueueItem(row scanner) (*model.SearchQueueItem, error) {
	var item model.SearchQueueItem
	var scope, triggeredBy, status string
	var transactionID, lastProcessed, lastError sql.NullString
	var strategies, errList sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&item.ID, &scope, &transactionID, &triggeredBy,
		&strategies, &status,
		&item.TransactionsProcessed, &lastProcessed,
		&item.CandidatesFound, &item.MatchesFound,
		&item.RetryCount, &item.MaxRetries, &lastError, &errList,
		&item.CreatedAt, &item.UpdatedAt, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue item: %w", err)
	}

	item.Scope = model.QueueScope(scope)
	item.TriggeredBy = model.TriggerSource(triggeredBy)
	item.Status = model.QueueStatus(status)
	item.TransactionID = transactionID.String
	item.LastProcessedTransactionID = lastProcessed.String
	item.LastError = lastError.String
	item.StartedAt = scanTimePtr(startedAt)
	item.CompletedAt = scanTimePtr(completedAt)

	if err := unmarshalList(strategies, &item.Strategies); err != nil {
		return nil, err
	}
	if err := unmarshalList(errList, &item.Errors); err != nil {
		return nil, err
	}
	return &item, nil
}
