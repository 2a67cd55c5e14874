// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// PartnerType distinguishes user-scoped from shared partner records.
type PartnerType string

// Partner type constants.
const (
	PartnerTypeUser   PartnerType = "user"
	PartnerTypeGlobal PartnerType = "global"
)

// MatchSource identifies which signal produced a partner match.
type MatchSource string

// Match source constants, in signal priority order.
const (
	SourceIBAN    MatchSource = "iban"
	SourcePattern MatchSource = "pattern"
	SourceWebsite MatchSource = "website"
	SourceAlias   MatchSource = "alias"
	SourceName    MatchSource = "name"
)

// LinkOrigin records how a link between records was established.
// Precedence is manual > auto > suggestion: a lower-trust origin must
// never overwrite a link created by a higher-trust one.
type LinkOrigin string

// Link origin constants.
const (
	OriginManual     LinkOrigin = "manual"
	OriginAuto       LinkOrigin = "auto"
	OriginSuggestion LinkOrigin = "suggestion"
)

// Precedence returns the trust rank of an origin, higher wins.
func (o LinkOrigin) Precedence() int {
	switch o {
	case OriginManual:
		return 3
	case OriginAuto:
		return 2
	case OriginSuggestion:
		return 1
	}
	return 0
}

// PartnerMatch is one ranked partner resolution for a transaction.
type PartnerMatch struct {
	PartnerID  string      `json:"partner_id"`
	Type       PartnerType `json:"type"`
	Source     MatchSource `json:"source"`
	Confidence float64     `json:"confidence"`
}

// CategorySuggestion is one ranked no-receipt category suggestion.
type CategorySuggestion struct {
	CategoryID string  `json:"category_id"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Transaction represents a single bank transaction: immutable record
// facts plus the mutable resolution state maintained by the matchers.
type Transaction struct {
	Date             time.Time
	ID               string
	Hash             string
	Name             string // Raw transaction description
	Counterparty     string // Counterparty text as reported by the bank
	CounterpartyIBAN string
	Reference        string // Payment reference / remittance info
	AccountID        string
	Currency         string
	AmountCents      int64

	// Resolution state.
	PartnerID              string
	PartnerType            PartnerType
	PartnerLinkOrigin      LinkOrigin
	PartnerMatchConfidence float64
	PartnerSuggestions     []PartnerMatch
	FileIDs                []string
	RejectedFileIDs        []string
	RejectedPartnerIDs     []string
	NoReceiptCategoryID    string
	CategoryLinkOrigin     LinkOrigin
	CategorySuggestions    []CategorySuggestion
	Complete               bool
}

// GenerateHash creates a stable natural key for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%d:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.AmountCents,
		t.Currency,
		t.Counterparty,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsFileRejected reports whether the user has rejected this file for
// this transaction. Rejections are permanent negative constraints.
func (t *Transaction) IsFileRejected(fileID string) bool {
	for _, id := range t.RejectedFileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

// IsPartnerRejected reports whether the user has rejected this partner
// for this transaction.
func (t *Transaction) IsPartnerRejected(partnerID string) bool {
	for _, id := range t.RejectedPartnerIDs {
		if id == partnerID {
			return true
		}
	}
	return false
}

// HasFile reports whether the file is already linked.
func (t *Transaction) HasFile(fileID string) bool {
	for _, id := range t.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

// CanSetPartner reports whether a write from the given origin may
// replace the current partner link.
func (t *Transaction) CanSetPartner(origin LinkOrigin) bool {
	if t.PartnerID == "" {
		return true
	}
	return origin.Precedence() >= t.PartnerLinkOrigin.Precedence()
}

// CanSetCategory reports whether a write from the given origin may
// replace the current no-receipt category link.
func (t *Transaction) CanSetCategory(origin LinkOrigin) bool {
	if t.NoReceiptCategoryID == "" {
		return true
	}
	return origin.Precedence() >= t.CategoryLinkOrigin.Precedence()
}
