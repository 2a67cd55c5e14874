// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/reconflow/reconflow/internal/model"
)

// Store defines the contract for the persistence layer: document-style
// reads/writes keyed by ID with simple equality/range filters. Nothing
// beyond single-row updates and bounded batch writes is relied upon.
type Store interface {
	// Transaction operations.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	// ListIncompleteTransactions pages by cursor: results have IDs
	// strictly greater than afterID, ordered by ID, so pagination is
	// stable under concurrent inserts.
	ListIncompleteTransactions(ctx context.Context, afterID string, limit int) ([]model.Transaction, error)
	UpdateTransactionResolution(ctx context.Context, txn *model.Transaction) error

	// Partner operations.
	SavePartner(ctx context.Context, partner *model.Partner) error
	GetPartner(ctx context.Context, id string) (*model.Partner, error)
	ListPartners(ctx context.Context, partnerType model.PartnerType) ([]model.Partner, error)
	DeletePartner(ctx context.Context, id string, hard bool) error
	// PartnerHasFileHistory reports whether any file resolves to the
	// partner; absence is a strong no-receipt signal.
	PartnerHasFileHistory(ctx context.Context, partnerID string) (bool, error)

	// File operations.
	SaveFile(ctx context.Context, file *model.File) error
	GetFile(ctx context.Context, id string) (*model.File, error)
	// GetFileBySHA256 also returns soft-deleted files so callers can
	// revive instead of duplicating.
	GetFileBySHA256(ctx context.Context, sha string) (*model.File, error)
	GetFileByMessageID(ctx context.Context, messageID string) (*model.File, error)
	ReviveFile(ctx context.Context, id string) error
	ListFilesNearDate(ctx context.Context, date time.Time, windowDays int) ([]model.File, error)
	SetPrecisionSearchHint(ctx context.Context, fileID, hint string) error

	// Category operations.
	SaveCategory(ctx context.Context, category *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	IncrementCategoryUsage(ctx context.Context, id string) error

	// Queue operations.
	CreateQueueItem(ctx context.Context, item *model.SearchQueueItem) error
	GetQueueItem(ctx context.Context, id string) (*model.SearchQueueItem, error)
	// ClaimOldestPending atomically transitions the oldest pending item
	// to processing. Returns common.ErrNoPendingWork when idle.
	ClaimOldestPending(ctx context.Context) (*model.SearchQueueItem, error)
	UpdateQueueItem(ctx context.Context, item *model.SearchQueueItem) error
	// RequeueItem returns an item to pending with its progress
	// preserved. Schedule-triggered items are updated in place;
	// event-triggered items are recreated so the creation hook fires
	// again immediately.
	RequeueItem(ctx context.Context, item *model.SearchQueueItem) error

	// Attempt operations.
	GetAttempt(ctx context.Context, queueItemID, transactionID string, strategy model.StrategyID) (*model.SearchAttempt, error)
	UpsertAttempt(ctx context.Context, attempt *model.SearchAttempt) error
	ListAttempts(ctx context.Context, transactionID string) ([]model.SearchAttempt, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// MessageRef is a lightweight handle returned by a mailbox search.
type MessageRef struct {
	ID       string
	ThreadID string
}

// AttachmentRef describes one attachment on a message.
type AttachmentRef struct {
	ID       string
	Filename string
	MimeType string
	Size     int64
}

// Message is a fully loaded mailbox message.
type Message struct {
	Date        time.Time
	ID          string
	Subject     string
	From        string
	Snippet     string
	Body        string
	Attachments []AttachmentRef
}

// Mailbox is the external mailbox-search collaborator. Every call is
// individually rate-limited by the implementation. Token expiry
// surfaces as common.ErrReauthRequired and is never retried here.
type Mailbox interface {
	Search(ctx context.Context, query string, maxResults int64) ([]MessageRef, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Extractor is the asynchronous field-extraction collaborator. The
// matching core only hands newly discovered files off; extraction
// completes out of band and flips the file's Extracted flag.
type Extractor interface {
	Enqueue(ctx context.Context, fileID string) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
