// Package matcher implements the confidence-scored matchers that link
// transactions to partners, files to transactions, and transactions to
// no-receipt categories.
package matcher

// Thresholds centralizes every confidence constant the matchers and
// the search orchestrator use. Values are configurable but default to
// the hand-tuned production numbers.
type Thresholds struct {
	// PartnerAutoApply is the minimum confidence at which a partner
	// match is applied without user confirmation.
	PartnerAutoApply float64
	// FuzzyNameFloor is the minimum company-name similarity considered
	// a match against the counterparty field.
	FuzzyNameFloor float64
	// FuzzyNameFallbackFloor is the stricter floor used when falling
	// back to the raw transaction name field.
	FuzzyNameFallbackFloor float64

	// FileAutoConnect is the file-transaction score at which a file is
	// connected without user confirmation.
	FileAutoConnect float64
	// FileSuggestion is the score floor below which a file candidate
	// is discarded entirely.
	FileSuggestion float64
	// FileDateWindowDays bounds the candidate prefilter around the
	// file's extracted date.
	FileDateWindowDays int

	// CategoryAutoApply is the auto-apply floor for category matches;
	// it doubles as the fixed confidence of a partner-only hit.
	CategoryAutoApply float64
	// CategorySuggestionFloor discards weak category suggestions.
	CategorySuggestionFloor float64

	// StrongMatch stops further strategies for a transaction.
	StrongMatch float64
	// GreatMatch counts toward the mailbox early-stop budget.
	GreatMatch float64
	// MaxGreatMatches bounds mailbox queries per transaction across
	// invocations.
	MaxGreatMatches int

	// MaxSuggestions caps ranked results returned by every matcher.
	MaxSuggestions int
}

// DefaultThresholds returns the production constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PartnerAutoApply:        89,
		FuzzyNameFloor:          60,
		FuzzyNameFallbackFloor:  70,
		FileAutoConnect:         85,
		FileSuggestion:          50,
		FileDateWindowDays:      30,
		CategoryAutoApply:       89,
		CategorySuggestionFloor: 60,
		StrongMatch:             85,
		GreatMatch:              90,
		MaxGreatMatches:         3,
		MaxSuggestions:          3,
	}
}

// clamp bounds a confidence to [0,100].
func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
