package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reconflow/reconflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidPartner     = errors.New("invalid partner")
	ErrInvalidFile        = errors.New("invalid file")
	ErrInvalidQueueItem   = errors.New("invalid queue item")
	ErrInvalidAttempt     = errors.New("invalid search attempt")
)

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Name == "" && txn.Counterparty == "" {
		return fmt.Errorf("%w: missing name and counterparty", ErrInvalidTransaction)
	}
	return nil
}

func validatePartner(p *model.Partner) error {
	if p == nil {
		return fmt.Errorf("%w: partner", ErrNilParameter)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPartner)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPartner)
	}
	if p.Type != model.PartnerTypeUser && p.Type != model.PartnerTypeGlobal {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPartner, p.Type)
	}
	return nil
}

func validateFile(f *model.File) error {
	if f == nil {
		return fmt.Errorf("%w: file", ErrNilParameter)
	}
	if f.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidFile)
	}
	if f.SHA256 == "" {
		return fmt.Errorf("%w: missing content hash", ErrInvalidFile)
	}
	return nil
}

func validateQueueItem(item *model.SearchQueueItem) error {
	if item == nil {
		return fmt.Errorf("%w: queue item", ErrNilParameter)
	}
	if item.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidQueueItem)
	}
	if item.Scope == model.ScopeSingleTransaction && item.TransactionID == "" {
		return fmt.Errorf("%w: single-transaction scope requires a transaction ID", ErrInvalidQueueItem)
	}
	if len(item.Strategies) == 0 {
		return fmt.Errorf("%w: missing strategies", ErrInvalidQueueItem)
	}
	return nil
}

func validateAttempt(a *model.SearchAttempt) error {
	if a == nil {
		return fmt.Errorf("%w: attempt", ErrNilParameter)
	}
	if a.QueueItemID == "" || a.TransactionID == "" || a.Strategy == "" {
		return fmt.Errorf("%w: missing key fields", ErrInvalidAttempt)
	}
	return nil
}
