package matcher

import (
	"sort"
	"strings"

	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/similarity"
)

// Signal confidences that are fixed rather than derived.
const (
	ibanConfidence    = 100
	websiteConfidence = 90
	aliasConfidence   = 90

	// Fuzzy name similarity is rescaled into these bands so that a
	// name alone stays below certainty.
	fuzzyNameCeiling     = 90
	fuzzyFallbackCeiling = 85
	fuzzyFloorConfidence = 60
)

// PartnerMatcher resolves a transaction to a counterparty using ranked
// signals.
type PartnerMatcher struct {
	th Thresholds
}

// NewPartnerMatcher creates a partner matcher with the given thresholds.
func NewPartnerMatcher(th Thresholds) *PartnerMatcher {
	return &PartnerMatcher{th: th}
}

// Match evaluates every partner against the transaction and returns
// the top ranked matches. User-scoped partners outrank global partners
// above the auto-apply threshold regardless of score, and win ties
// below it.
func (m *PartnerMatcher) Match(txn model.Transaction, userPartners, globalPartners []model.Partner) []model.PartnerMatch {
	var matches []model.PartnerMatch

	evaluate := func(partners []model.Partner, pType model.PartnerType) {
		for i := range partners {
			p := &partners[i]
			if p.IsDeleted() || txn.IsPartnerRejected(p.ID) {
				continue
			}
			if match := m.evaluatePartner(txn, p); match != nil {
				match.Type = pType
				matches = append(matches, *match)
			}
		}
	}

	evaluate(userPartners, model.PartnerTypeUser)
	evaluate(globalPartners, model.PartnerTypeGlobal)

	m.rank(matches)

	if len(matches) > m.th.MaxSuggestions {
		matches = matches[:m.th.MaxSuggestions]
	}
	return matches
}

// ShouldAutoApply reports whether a match may be applied without user
// confirmation. A fuzzy name match never auto-applies on its own, no
// matter how similar the names are.
func (m *PartnerMatcher) ShouldAutoApply(match model.PartnerMatch) bool {
	return match.Confidence >= m.th.PartnerAutoApply && match.Source != model.SourceName
}

// evaluatePartner returns the single highest-confidence signal for one
// partner, or nil when nothing matches. An IBAN hit is definitive and
// short-circuits the remaining signals.
func (m *PartnerMatcher) evaluatePartner(txn model.Transaction, p *model.Partner) *model.PartnerMatch {
	if m.matchIBAN(txn, p) {
		return &model.PartnerMatch{
			PartnerID:  p.ID,
			Source:     model.SourceIBAN,
			Confidence: ibanConfidence,
		}
	}

	best := model.PartnerMatch{PartnerID: p.ID}

	if conf := m.matchPatterns(txn, p); conf > best.Confidence {
		best.Confidence = conf
		best.Source = model.SourcePattern
	}
	if m.matchWebsite(txn, p) && websiteConfidence > best.Confidence {
		best.Confidence = websiteConfidence
		best.Source = model.SourceWebsite
	}
	if m.matchGlobAliases(txn, p) && aliasConfidence > best.Confidence {
		best.Confidence = aliasConfidence
		best.Source = model.SourceAlias
	}
	if conf := m.matchFuzzyName(txn, p); conf > best.Confidence {
		best.Confidence = conf
		best.Source = model.SourceName
	}

	if best.Source == "" {
		return nil
	}
	best.Confidence = clamp(best.Confidence)
	return &best
}

func (m *PartnerMatcher) matchIBAN(txn model.Transaction, p *model.Partner) bool {
	txnIBAN := NormalizeIBAN(txn.CounterpartyIBAN)
	if txnIBAN == "" {
		return false
	}
	for _, iban := range p.IBANs {
		if NormalizeIBAN(iban) == txnIBAN {
			return true
		}
	}
	return false
}

// matchPatterns checks learned and static glob patterns against the
// counterparty text and the raw name; a pattern hit carries the
// pattern's own stored confidence.
func (m *PartnerMatcher) matchPatterns(txn model.Transaction, p *model.Partner) float64 {
	var best float64
	for _, pat := range p.LearnedPatterns {
		if pat.Glob == "" || pat.Confidence <= best {
			continue
		}
		if similarity.GlobMatch(pat.Glob, txn.Counterparty) || similarity.GlobMatch(pat.Glob, txn.Name) {
			best = pat.Confidence
		}
	}
	return best
}

func (m *PartnerMatcher) matchWebsite(txn model.Transaction, p *model.Partner) bool {
	domain := ExtractDomain(p.Website)
	if domain == "" {
		return false
	}
	haystack := strings.ToLower(txn.Counterparty + " " + txn.Name + " " + txn.Reference)
	return strings.Contains(haystack, domain)
}

func (m *PartnerMatcher) matchGlobAliases(txn model.Transaction, p *model.Partner) bool {
	for _, alias := range p.GlobAliases() {
		if similarity.GlobMatch(alias, txn.Counterparty) || similarity.GlobMatch(alias, txn.Name) {
			return true
		}
	}
	return false
}

// matchFuzzyName compares the partner name and plain aliases against
// the counterparty field, falling back to the raw transaction name
// with a stricter floor. Similarity is rescaled into a bounded band so
// that name evidence alone stays below certainty.
func (m *PartnerMatcher) matchFuzzyName(txn model.Transaction, p *model.Partner) float64 {
	names := append([]string{p.Name}, p.PlainAliases()...)

	var best float64
	for _, n := range names {
		if n == "" {
			continue
		}
		if txn.Counterparty != "" {
			sim := similarity.CompanyName(txn.Counterparty, n)
			if sim >= m.th.FuzzyNameFloor {
				conf := rescale(sim, m.th.FuzzyNameFloor, fuzzyNameCeiling)
				if conf > best {
					best = conf
				}
				continue
			}
		}
		// Fallback to the unparsed name field, stricter floor.
		sim := similarity.CompanyName(txn.Name, n)
		if sim >= m.th.FuzzyNameFallbackFloor {
			conf := rescale(sim, m.th.FuzzyNameFallbackFloor, fuzzyFallbackCeiling)
			if conf > best {
				best = conf
			}
		}
	}
	return best
}

// rescale maps a similarity in [floor,100] onto [60,ceiling].
func rescale(sim, floor, ceiling float64) float64 {
	span := 100 - floor
	if span <= 0 {
		return ceiling
	}
	return fuzzyFloorConfidence + (sim-floor)/span*(ceiling-fuzzyFloorConfidence)
}

// rank orders matches best-first. When both sides clear the auto-apply
// threshold, a user-scoped partner always outranks a global one; below
// it the numeric score decides, ties going to the user partner.
func (m *PartnerMatcher) rank(matches []model.PartnerMatch) {
	auto := m.th.PartnerAutoApply
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence >= auto && b.Confidence >= auto && a.Type != b.Type {
			return a.Type == model.PartnerTypeUser
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Type == model.PartnerTypeUser && b.Type != model.PartnerTypeUser
	})
}

// NormalizeIBAN strips spaces and uppercases for comparison.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// ExtractDomain reduces a website URL to its bare host name.
func ExtractDomain(website string) string {
	d := strings.ToLower(strings.TrimSpace(website))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if !strings.Contains(d, ".") {
		return ""
	}
	return d
}
