package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/service"
)

const (
	// defaultBudget keeps each invocation safely under typical host
	// execution ceilings.
	defaultBudget = 4 * time.Minute
	// defaultBatchSize is the cursor page size for all-incomplete
	// scope.
	defaultBatchSize = 50
)

// Processor claims queue items and runs the strategy pipeline over
// their transactions, checkpointing when the wall-clock budget runs
// out.
type Processor struct {
	store      service.Store
	factory    ExecutionFactory
	strategies []StrategyDescriptor
	budget     time.Duration
	batchSize  int
	now        func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithBudget overrides the wall-clock budget per invocation.
func WithBudget(d time.Duration) Option {
	return func(p *Processor) { p.budget = d }
}

// WithBatchSize overrides the cursor page size.
func WithBatchSize(n int) Option {
	return func(p *Processor) { p.batchSize = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a processor over the full strategy pipeline.
func NewProcessor(store service.Store, factory ExecutionFactory, opts ...Option) *Processor {
	p := &Processor{
		store:      store,
		factory:    factory,
		strategies: Pipeline(),
		budget:     defaultBudget,
		batchSize:  defaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessNext claims and processes the oldest pending queue item.
// Returns common.ErrNoPendingWork when the queue is idle.
func (p *Processor) ProcessNext(ctx context.Context) (*model.SearchQueueItem, error) {
	item, err := p.store.ClaimOldestPending(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Processing search queue item",
		"queue_item_id", item.ID,
		"scope", item.Scope,
		"triggered_by", item.TriggeredBy,
		"retry_count", item.RetryCount)

	if err := p.processItem(ctx, item); err != nil {
		return item, p.handleFailure(ctx, item, err)
	}
	return item, nil
}

func (p *Processor) processItem(ctx context.Context, item *model.SearchQueueItem) error {
	exec, err := p.factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to build execution context: %w", err)
	}
	defer func() { _ = exec.Close() }()

	deadline := p.now().Add(p.budget)

	for {
		txns, err := p.nextBatch(ctx, item)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			break
		}

		for i := range txns {
			txn := &txns[i]

			if p.now().After(deadline) {
				return p.checkpoint(ctx, item)
			}

			if err := p.runStrategies(ctx, exec, item, txn); err != nil {
				return err
			}

			item.TransactionsProcessed++
			item.LastProcessedTransactionID = txn.ID
			if err := p.store.UpdateQueueItem(ctx, item); err != nil {
				return err
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if item.Scope == model.ScopeSingleTransaction {
			break
		}
	}

	now := p.now().UTC()
	item.Status = model.QueueStatusCompleted
	item.CompletedAt = &now
	if err := p.store.UpdateQueueItem(ctx, item); err != nil {
		return err
	}

	slog.Info("Search queue item completed",
		"queue_item_id", item.ID,
		"transactions_processed", item.TransactionsProcessed,
		"candidates_found", item.CandidatesFound,
		"matches_found", item.MatchesFound)
	return nil
}

// nextBatch loads the next transactions for the item's scope. Single
// scope yields the one transaction until it has been processed.
func (p *Processor) nextBatch(ctx context.Context, item *model.SearchQueueItem) ([]model.Transaction, error) {
	if item.Scope == model.ScopeSingleTransaction {
		if item.LastProcessedTransactionID == item.TransactionID {
			return nil, nil
		}
		txn, err := p.store.GetTransaction(ctx, item.TransactionID)
		if err != nil {
			return nil, err
		}
		return []model.Transaction{*txn}, nil
	}
	return p.store.ListIncompleteTransactions(ctx, item.LastProcessedTransactionID, p.batchSize)
}

// runStrategies executes the pipeline for one transaction. Per-
// strategy failures accumulate on the item so one transaction never
// blocks its siblings; only re-authentication and cancellation abort
// the job.
func (p *Processor) runStrategies(ctx context.Context, exec *Execution, item *model.SearchQueueItem, txn *model.Transaction) error {
	var best float64

	for _, desc := range p.strategies {
		if !strategySelected(item.Strategies, desc.ID) {
			continue
		}
		if best >= exec.Thresholds.StrongMatch {
			break
		}

		if desc.StopAfterGreat {
			great, err := p.greatMatchesSoFar(ctx, txn.ID)
			if err != nil {
				p.recordError(item, txn.ID, desc.ID, err)
				continue
			}
			if great >= exec.Thresholds.MaxGreatMatches {
				slog.Debug("Skipping strategy, great-match budget reached",
					"transaction_id", txn.ID,
					"strategy", desc.ID)
				continue
			}
		}

		result, err := desc.Run(ctx, exec, txn)

		attempt := &model.SearchAttempt{
			QueueItemID:         item.ID,
			TransactionID:       txn.ID,
			Strategy:            desc.ID,
			CandidatesFound:     result.CandidatesFound,
			CandidatesEvaluated: result.CandidatesEvaluated,
			MatchesFound:        result.MatchesFound,
			QueriesIssued:       result.QueriesIssued,
			GreatMatches:        result.GreatMatches,
			BestScore:           result.BestScore,
			Errors:              result.Errors,
		}
		if err != nil {
			attempt.Errors = append(attempt.Errors, err.Error())
		}
		if upsertErr := p.store.UpsertAttempt(ctx, attempt); upsertErr != nil {
			p.recordError(item, txn.ID, desc.ID, upsertErr)
		}

		item.CandidatesFound += result.CandidatesFound
		item.MatchesFound += result.MatchesFound
		for _, msg := range result.Errors {
			item.Errors = append(item.Errors, fmt.Sprintf("%s/%s: %s", txn.ID, desc.ID, msg))
		}
		if err != nil {
			if errors.Is(err, common.ErrReauthRequired) || ctx.Err() != nil {
				return err
			}
			p.recordError(item, txn.ID, desc.ID, err)
		}

		if result.BestScore > best {
			best = result.BestScore
		}
	}
	return nil
}

// greatMatchesSoFar totals recorded great matches across all mailbox
// strategies and all queue items, so the early stop survives requeues
// and recreated jobs. The budget bounds mailbox queries for the
// transaction entirely, not per strategy.
func (p *Processor) greatMatchesSoFar(ctx context.Context, txnID string) (int, error) {
	attempts, err := p.store.ListAttempts(ctx, txnID)
	if err != nil {
		return 0, err
	}

	budgeted := make(map[model.StrategyID]bool, len(p.strategies))
	for _, desc := range p.strategies {
		if desc.StopAfterGreat {
			budgeted[desc.ID] = true
		}
	}

	var total int
	for _, a := range attempts {
		if budgeted[a.Strategy] {
			total += a.GreatMatches
		}
	}
	return total, nil
}

func (p *Processor) recordError(item *model.SearchQueueItem, txnID string, strategy model.StrategyID, err error) {
	msg := fmt.Sprintf("%s/%s: %v", txnID, strategy, err)
	item.Errors = append(item.Errors, msg)
	item.LastError = err.Error()
	slog.Warn("Strategy failed",
		"transaction_id", txnID,
		"strategy", strategy,
		"error", err)
}

// checkpoint persists progress and yields the item back to pending.
func (p *Processor) checkpoint(ctx context.Context, item *model.SearchQueueItem) error {
	slog.Info("Budget exceeded, checkpointing",
		"queue_item_id", item.ID,
		"transactions_processed", item.TransactionsProcessed,
		"cursor", item.LastProcessedTransactionID)
	return p.store.RequeueItem(ctx, item)
}

// handleFailure applies the retry policy: requeue with progress until
// MaxRetries, then mark failed with the last error preserved.
func (p *Processor) handleFailure(ctx context.Context, item *model.SearchQueueItem, cause error) error {
	item.RetryCount++
	item.LastError = cause.Error()
	item.Errors = append(item.Errors, cause.Error())

	// Re-authentication is never retried: only the user reconnecting
	// the integration can fix it.
	retryable := !errors.Is(cause, common.ErrReauthRequired)
	if item.RetryCount <= item.MaxRetries && retryable {
		slog.Warn("Queue item failed, requeueing",
			"queue_item_id", item.ID,
			"retry_count", item.RetryCount,
			"error", cause)
		if err := p.store.RequeueItem(ctx, item); err != nil {
			return errors.Join(cause, err)
		}
		return cause
	}

	slog.Error("Queue item failed terminally",
		"queue_item_id", item.ID,
		"retry_count", item.RetryCount,
		"error", cause)
	item.Status = model.QueueStatusFailed
	if err := p.store.UpdateQueueItem(ctx, item); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func strategySelected(selected []model.StrategyID, id model.StrategyID) bool {
	for _, s := range selected {
		if s == id {
			return true
		}
	}
	return false
}
