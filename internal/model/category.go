package model

import "time"

// Category is a named no-receipt bucket. Transactions that will never
// have a receipt (bank fees, taxes, payroll) are assigned here instead
// of being matched to a file.
type Category struct {
	CreatedAt         time.Time
	ID                string
	Name              string
	MatchedPartnerIDs []string
	LearnedPatterns   []LearnedPattern

	// TransactionCount feeds the logarithmic usage boost.
	TransactionCount int

	// ReceiptLost marks the user-action-only pseudo-category that the
	// classifier must never suggest.
	ReceiptLost bool
}

// HasPartner reports whether the partner is explicitly associated with
// this category.
func (c *Category) HasPartner(partnerID string) bool {
	if partnerID == "" {
		return false
	}
	for _, id := range c.MatchedPartnerIDs {
		if id == partnerID {
			return true
		}
	}
	return false
}
