// Package orchestrator drives the resumable multi-strategy search that
// finds receipt files for incomplete transactions. It claims queue
// items, walks transactions by cursor, runs strategies in priority
// order, and checkpoints under a wall-clock budget.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/search"
	"github.com/reconflow/reconflow/internal/service"
)

// Execution owns the resources one job run needs. It is acquired per
// claimed queue item and released on completion so nothing leaks
// across jobs.
type Execution struct {
	Store      service.Store
	Mailbox    service.Mailbox
	Extractor  service.Extractor
	Thresholds matcher.Thresholds

	FileScorer *matcher.FileScorer
	Generator  *search.Generator
	Relevance  *search.RelevanceScorer

	closers []func() error
}

// ExecutionFactory builds a fresh execution context for one job.
type ExecutionFactory func(ctx context.Context) (*Execution, error)

// NewExecution wires an execution context from its collaborators.
func NewExecution(store service.Store, mailbox service.Mailbox, extractor service.Extractor, th matcher.Thresholds) *Execution {
	return &Execution{
		Store:      store,
		Mailbox:    mailbox,
		Extractor:  extractor,
		Thresholds: th,
		FileScorer: matcher.NewFileScorer(th),
		Generator:  search.NewGenerator(),
		Relevance:  search.NewRelevanceScorer(),
	}
}

// AddCloser registers a cleanup hook released with the execution.
func (e *Execution) AddCloser(fn func() error) {
	e.closers = append(e.closers, fn)
}

// Close releases all resources acquired for the job, last first.
func (e *Execution) Close() error {
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// partnerFor resolves the transaction's linked partner, nil when the
// transaction has none.
func (e *Execution) partnerFor(ctx context.Context, txn *model.Transaction) (*model.Partner, error) {
	if txn.PartnerID == "" {
		return nil, nil
	}
	partner, err := e.Store.GetPartner(ctx, txn.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner %s: %w", txn.PartnerID, err)
	}
	return partner, nil
}

// connectFile links a file to a transaction in both directions.
func (e *Execution) connectFile(ctx context.Context, txn *model.Transaction, file *model.File) error {
	if txn.HasFile(file.ID) {
		return nil
	}

	txn.FileIDs = append(txn.FileIDs, file.ID)
	txn.Complete = true
	if err := e.Store.UpdateTransactionResolution(ctx, txn); err != nil {
		return err
	}

	file.TransactionIDs = append(file.TransactionIDs, txn.ID)
	if err := e.Store.SaveFile(ctx, file); err != nil {
		return err
	}

	slog.Debug("Connected file to transaction",
		"transaction_id", txn.ID,
		"file_id", file.ID)
	return nil
}

// ingestDiscovered stores bytes discovered in the mailbox as a file,
// deduplicating by content hash and reviving soft-deleted matches.
// The precision-search hint marks the file for re-evaluation by the
// downstream matching trigger once extraction completes.
func (e *Execution) ingestDiscovered(ctx context.Context, data []byte, fileName, messageID, txnID string) (*model.File, error) {
	sha := fmt.Sprintf("%x", sha256.Sum256(data))

	existing, err := e.Store.GetFileBySHA256(ctx, sha)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if existing.IsDeleted() {
			if err := e.Store.ReviveFile(ctx, existing.ID); err != nil {
				return nil, err
			}
			existing.DeletedAt = nil
			slog.Debug("Revived soft-deleted file", "file_id", existing.ID)
		}
		if err := e.Store.SetPrecisionSearchHint(ctx, existing.ID, txnID); err != nil {
			return nil, err
		}
		return existing, nil
	}

	file := &model.File{
		ID:                  uuid.New().String(),
		SHA256:              sha,
		FileName:            fileName,
		SourceMessageID:     messageID,
		PrecisionSearchHint: txnID,
	}
	if err := e.Store.SaveFile(ctx, file); err != nil {
		return nil, err
	}

	if e.Extractor != nil {
		if err := e.Extractor.Enqueue(ctx, file.ID); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
