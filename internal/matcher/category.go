package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/similarity"
)

// Category match sources.
const (
	categorySourcePartner        = "partner"
	categorySourcePattern        = "pattern"
	categorySourcePartnerPattern = "partner+pattern"
)

const (
	// combinedBonus is added when partner membership and a learned
	// pattern agree.
	combinedBonus = 15
	// usageBoostCap bounds the logarithmic usage boost.
	usageBoostCap = 10
	// noFileHistoryBoost applies when the partner has never had a file
	// attached: a strong signal the transaction belongs in a
	// no-receipt bucket.
	noFileHistoryBoost = 5
)

// CategoryClassifier decides whether a receipt-less transaction
// belongs to a recurring no-receipt category.
type CategoryClassifier struct {
	th Thresholds
}

// NewCategoryClassifier creates a classifier with the given thresholds.
func NewCategoryClassifier(th Thresholds) *CategoryClassifier {
	return &CategoryClassifier{th: th}
}

// Classify evaluates every category against the transaction and its
// resolved partner (may be nil). partnerHasFileHistory reports whether
// any file has ever resolved to the partner.
func (c *CategoryClassifier) Classify(txn *model.Transaction, partner *model.Partner, categories []model.Category, partnerHasFileHistory bool) []model.CategorySuggestion {
	text := classifierText(txn)

	var suggestions []model.CategorySuggestion
	for i := range categories {
		cat := &categories[i]
		if cat.ReceiptLost {
			// Only an explicit user action may land here.
			continue
		}

		partnerID := ""
		if partner != nil {
			partnerID = partner.ID
		}
		partnerHit := cat.HasPartner(partnerID)
		patternConf := bestPatternConfidence(cat.LearnedPatterns, text)

		var conf float64
		var source string
		switch {
		case partnerHit && patternConf > 0:
			conf = clamp(patternConf + combinedBonus)
			source = categorySourcePartnerPattern
		case partnerHit:
			conf = c.th.CategoryAutoApply
			source = categorySourcePartner
		case patternConf > 0:
			conf = patternConf
			source = categorySourcePattern
		default:
			continue
		}

		if partnerHit {
			conf += usageBoost(cat.TransactionCount)
			if !partnerHasFileHistory {
				conf += noFileHistoryBoost
			}
			conf = clamp(conf)
		}

		if conf < c.th.CategorySuggestionFloor {
			continue
		}

		suggestions = append(suggestions, model.CategorySuggestion{
			CategoryID: cat.ID,
			Source:     source,
			Confidence: conf,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > c.th.MaxSuggestions {
		suggestions = suggestions[:c.th.MaxSuggestions]
	}
	return suggestions
}

// ShouldAutoApply reports whether a category suggestion may be applied
// without user confirmation.
func (c *CategoryClassifier) ShouldAutoApply(s model.CategorySuggestion) bool {
	return s.Confidence >= c.th.CategoryAutoApply
}

// usageBoost grows logarithmically with the category's usage count so
// that early usage matters more than later usage.
func usageBoost(usageCount int) float64 {
	if usageCount <= 0 {
		return 0
	}
	return math.Min(usageBoostCap, 5*math.Log10(float64(usageCount)+1))
}

func bestPatternConfidence(patterns []model.LearnedPattern, fields []string) float64 {
	var best float64
	for _, p := range patterns {
		if p.Glob == "" || p.Confidence <= best {
			continue
		}
		for _, f := range fields {
			if f != "" && similarity.GlobMatch(p.Glob, f) {
				best = p.Confidence
				break
			}
		}
	}
	return best
}

// classifierText returns the fields a category pattern is tried
// against: counterparty, raw name, reference, and their concatenation.
func classifierText(txn *model.Transaction) []string {
	return []string{
		txn.Counterparty,
		txn.Name,
		txn.Reference,
		strings.TrimSpace(txn.Counterparty + " " + txn.Name + " " + txn.Reference),
	}
}
