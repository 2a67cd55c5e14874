package model

import "time"

// File represents an uploaded or discovered receipt/invoice document.
// Files are content-addressed by SHA256; extracted fields are populated
// asynchronously by the external extraction step and the matching core
// only acts once Extracted is set.
type File struct {
	CreatedAt time.Time
	DeletedAt *time.Time
	ID        string
	SHA256    string
	FileName  string

	// Extracted fields.
	Extracted     bool
	AmountCents   int64
	Currency      string
	Date          time.Time
	Counterparty  string
	IBAN          string
	InvoiceNumber string
	Text          string
	PartnerID     string // counterparty resolution of the document side

	// Association is by back-reference only; a file never owns a
	// transaction link directly.
	TransactionIDs []string

	// SourceMessageID is the mailbox message the file was discovered
	// in, if any. Used as a natural key against re-download.
	SourceMessageID string

	// PrecisionSearchHint is a short-lived annotation written by the
	// search orchestrator to force re-evaluation by the downstream
	// transaction-matching trigger.
	PrecisionSearchHint string
}

// IsDeleted reports whether the file has been soft-deleted.
func (f *File) IsDeleted() bool {
	return f.DeletedAt != nil
}
