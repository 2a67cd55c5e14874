package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/search"
	"github.com/reconflow/reconflow/internal/service"
)

const (
	// maxQueriesPerTransaction bounds mailbox queries issued for one
	// transaction within one strategy run.
	maxQueriesPerTransaction = 3
	// maxResultsPerQuery bounds message refs fetched per query.
	maxResultsPerQuery = 5
)

// searchRetry keeps transient mailbox failures from surfacing as
// strategy errors. Rate limits back off at MaxDelay inside WithRetry.
var searchRetry = service.RetryOptions{
	MaxAttempts:  2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// StrategyResult carries the counters one strategy run produced. They
// merge into the persisted attempt record.
type StrategyResult struct {
	CandidatesFound     int
	CandidatesEvaluated int
	MatchesFound        int
	QueriesIssued       int
	GreatMatches        int
	BestScore           float64
	Errors              []string
}

// StrategyFunc runs one strategy against one transaction.
type StrategyFunc func(ctx context.Context, exec *Execution, txn *model.Transaction) (StrategyResult, error)

// StrategyDescriptor makes the pipeline data: ordering and stop
// conditions live here, not in control flow.
type StrategyDescriptor struct {
	ID       model.StrategyID
	Priority int
	// StopAfterGreat marks strategies whose queries count toward the
	// cross-invocation great-match budget.
	StopAfterGreat bool
	Run            StrategyFunc
}

// Pipeline returns the full strategy pipeline in priority order.
func Pipeline() []StrategyDescriptor {
	return []StrategyDescriptor{
		{ID: model.StrategyEvidence, Priority: 0, Run: runEvidence},
		{ID: model.StrategyAmountDate, Priority: 1, Run: runAmountDate},
		{ID: model.StrategyMailboxAttachment, Priority: 2, StopAfterGreat: true, Run: runMailboxAttachment},
		{ID: model.StrategyMailboxBody, Priority: 3, StopAfterGreat: true, Run: runMailboxBody},
	}
}

// runEvidence scores already-extracted files that carry evidence for
// the transaction's resolved partner. Without a partner there is no
// evidence to search, which is a no-match, not an error.
func runEvidence(ctx context.Context, exec *Execution, txn *model.Transaction) (StrategyResult, error) {
	var result StrategyResult
	if txn.PartnerID == "" {
		return result, nil
	}

	files, err := exec.Store.ListFilesNearDate(ctx, txn.Date, exec.Thresholds.FileDateWindowDays)
	if err != nil {
		return result, err
	}

	for i := range files {
		file := &files[i]
		if file.PartnerID != txn.PartnerID {
			continue
		}
		result.CandidatesFound++
		if err := evaluateFile(ctx, exec, txn, file, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// runAmountDate scores every extracted file near the transaction date
// regardless of partner evidence.
func runAmountDate(ctx context.Context, exec *Execution, txn *model.Transaction) (StrategyResult, error) {
	var result StrategyResult

	files, err := exec.Store.ListFilesNearDate(ctx, txn.Date, exec.Thresholds.FileDateWindowDays)
	if err != nil {
		return result, err
	}

	for i := range files {
		file := &files[i]
		result.CandidatesFound++
		if err := evaluateFile(ctx, exec, txn, file, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func evaluateFile(ctx context.Context, exec *Execution, txn *model.Transaction, file *model.File, result *StrategyResult) error {
	if txn.IsFileRejected(file.ID) || txn.HasFile(file.ID) {
		return nil
	}

	result.CandidatesEvaluated++
	sc := exec.FileScorer.Score(file, txn)
	if sc.Total > result.BestScore {
		result.BestScore = sc.Total
	}
	if sc.Total >= exec.Thresholds.GreatMatch {
		result.GreatMatches++
	}
	if !exec.FileScorer.ShouldAutoConnect(sc) {
		return nil
	}

	result.MatchesFound++
	return exec.connectFile(ctx, txn, file)
}

// runMailboxAttachment searches the live mailbox and ingests promising
// attachments for asynchronous extraction.
func runMailboxAttachment(ctx context.Context, exec *Execution, txn *model.Transaction) (StrategyResult, error) {
	return runMailbox(ctx, exec, txn, true)
}

// runMailboxBody treats the message body itself as a potential
// invoice for senders that inline their receipts.
func runMailboxBody(ctx context.Context, exec *Execution, txn *model.Transaction) (StrategyResult, error) {
	return runMailbox(ctx, exec, txn, false)
}

func runMailbox(ctx context.Context, exec *Execution, txn *model.Transaction, attachments bool) (StrategyResult, error) {
	var result StrategyResult
	if exec.Mailbox == nil {
		return result, nil
	}

	partner, err := exec.partnerFor(ctx, txn)
	if err != nil {
		return result, err
	}

	queries := exec.Generator.Generate(txn, partner, maxQueriesPerTransaction)
	for _, q := range queries {
		if result.GreatMatches >= exec.Thresholds.MaxGreatMatches {
			break
		}

		var refs []service.MessageRef
		err := common.WithRetry(ctx, func() error {
			var searchErr error
			refs, searchErr = exec.Mailbox.Search(ctx, q.Term, maxResultsPerQuery)
			return searchErr
		}, searchRetry)
		result.QueriesIssued++
		if err != nil {
			if errors.Is(err, common.ErrReauthRequired) || ctx.Err() != nil {
				return result, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("query %q: %v", q.Term, err))
			continue
		}

		for _, ref := range refs {
			if err := evaluateMessage(ctx, exec, txn, partner, ref.ID, attachments, &result); err != nil {
				if errors.Is(err, common.ErrReauthRequired) || ctx.Err() != nil {
					return result, err
				}
				result.Errors = append(result.Errors, fmt.Sprintf("message %s: %v", ref.ID, err))
			}
			if result.GreatMatches >= exec.Thresholds.MaxGreatMatches {
				break
			}
		}
	}
	return result, nil
}

func evaluateMessage(ctx context.Context, exec *Execution, txn *model.Transaction, partner *model.Partner, messageID string, attachments bool, result *StrategyResult) error {
	// A message already ingested once is never downloaded again.
	if existing, err := exec.Store.GetFileByMessageID(ctx, messageID); err == nil {
		if existing.PrecisionSearchHint == "" {
			if err := exec.Store.SetPrecisionSearchHint(ctx, existing.ID, txn.ID); err != nil {
				return err
			}
		}
		return nil
	} else if !isNotFound(err) {
		return err
	}

	msg, err := exec.Mailbox.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	result.CandidatesFound++

	if attachments {
		for _, att := range msg.Attachments {
			result.CandidatesEvaluated++
			score := exec.Relevance.Score(search.Candidate{Message: msg, Filename: att.Filename}, txn, partner)
			if score > result.BestScore {
				result.BestScore = score
			}
			if score < exec.Thresholds.FileSuggestion {
				continue
			}

			data, err := exec.Mailbox.GetAttachment(ctx, msg.ID, att.ID)
			if err != nil {
				return err
			}
			if _, err := exec.ingestDiscovered(ctx, data, att.Filename, msg.ID, txn.ID); err != nil {
				return err
			}
			result.MatchesFound++
			if score >= exec.Thresholds.GreatMatch {
				result.GreatMatches++
			}
		}
		return nil
	}

	if len(msg.Attachments) > 0 || msg.Body == "" {
		return nil
	}
	result.CandidatesEvaluated++
	score := exec.Relevance.Score(search.Candidate{Message: msg}, txn, partner)
	if score > result.BestScore {
		result.BestScore = score
	}
	if score < exec.Thresholds.StrongMatch {
		// Body-as-invoice is the weakest evidence; only strong hits
		// are worth ingesting.
		return nil
	}

	if _, err := exec.ingestDiscovered(ctx, []byte(msg.Body), msg.Subject+".html", msg.ID, txn.ID); err != nil {
		return err
	}
	result.MatchesFound++
	if score >= exec.Thresholds.GreatMatch {
		result.GreatMatches++
	}
	return nil
}
