package model

import "time"

// QueueStatus is the lifecycle state of a search queue item.
type QueueStatus string

// Queue status constants. A processing item transitions back to
// pending when the processor checkpoints under its time budget.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueScope selects which transactions a queue item covers.
type QueueScope string

// Queue scope constants.
const (
	ScopeSingleTransaction QueueScope = "single_transaction"
	ScopeAllIncomplete     QueueScope = "all_incomplete"
)

// TriggerSource records what created a queue item. Schedule-triggered
// items are requeued in place; event-triggered items are recreated to
// get an immediate re-invocation.
type TriggerSource string

// Trigger source constants.
const (
	TriggerSchedule TriggerSource = "schedule"
	TriggerEvent    TriggerSource = "event"
)

// StrategyID identifies one search strategy in the pipeline.
type StrategyID string

// Strategy identifiers, in execution priority order.
const (
	StrategyEvidence          StrategyID = "evidence"
	StrategyAmountDate        StrategyID = "amount_date"
	StrategyMailboxAttachment StrategyID = "mailbox_attachment"
	StrategyMailboxBody       StrategyID = "mailbox_body"
)

// DefaultStrategies is the canonical strategy order for a full run.
func DefaultStrategies() []StrategyID {
	return []StrategyID{
		StrategyEvidence,
		StrategyAmountDate,
		StrategyMailboxAttachment,
		StrategyMailboxBody,
	}
}

// SearchQueueItem is one resumable unit of search work.
type SearchQueueItem struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	ID            string
	Scope         QueueScope
	TransactionID string // set when Scope is single_transaction
	TriggeredBy   TriggerSource
	Strategies    []StrategyID
	Status        QueueStatus

	// Progress counters, carried across checkpoints and retries.
	TransactionsProcessed      int
	LastProcessedTransactionID string
	CandidatesFound            int
	MatchesFound               int

	RetryCount int
	MaxRetries int
	LastError  string
	Errors     []string
}

// SearchAttempt is an append-only audit record of one strategy
// execution against one transaction. Re-attempts within the same queue
// item merge into the existing record.
type SearchAttempt struct {
	CreatedAt time.Time
	UpdatedAt time.Time

	ID            string
	QueueItemID   string
	TransactionID string
	Strategy      StrategyID

	CandidatesFound     int
	CandidatesEvaluated int
	MatchesFound        int
	QueriesIssued       int
	GreatMatches        int
	BestScore           float64
	Errors              []string
}

// Merge folds a later execution's results into the attempt record.
func (a *SearchAttempt) Merge(other SearchAttempt) {
	a.CandidatesFound += other.CandidatesFound
	a.CandidatesEvaluated += other.CandidatesEvaluated
	a.MatchesFound += other.MatchesFound
	a.QueriesIssued += other.QueriesIssued
	a.GreatMatches += other.GreatMatches
	if other.BestScore > a.BestScore {
		a.BestScore = other.BestScore
	}
	a.Errors = append(a.Errors, other.Errors...)
}
