package search

import (
	"regexp"
	"strings"
	"time"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/service"
	"github.com/reconflow/reconflow/internal/similarity"
)

// Relevance component points.
const (
	relevanceReferencePoints  = 30
	relevanceAmountPoints     = 25
	relevanceSenderPoints     = 20
	relevanceDateClosePoints  = 15
	relevanceDateNearPoints   = 8
	relevanceNamePoints       = 10
	relevanceAttachmentPoints = 5
)

// Candidate is one message/attachment pair under evaluation. When the
// message carries no attachment the Filename is empty and the body is
// evaluated as a potential invoice itself.
type Candidate struct {
	Message  *service.Message
	Filename string
}

// RelevanceScorer scores a mailbox candidate against a transaction in
// [0,100]. Pure evaluation; all I/O happens in the caller.
type RelevanceScorer struct{}

// NewRelevanceScorer creates a relevance scorer.
func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{}
}

// Score evaluates one candidate. partner may be nil.
func (s *RelevanceScorer) Score(c Candidate, txn *model.Transaction, partner *model.Partner) float64 {
	if c.Message == nil || txn == nil {
		return 0
	}

	var score float64
	haystack := strings.ToLower(c.Message.Subject + " " + c.Filename + " " + c.Message.Snippet + " " + c.Message.Body)

	// Invoice number in subject, filename or body is the strongest
	// single signal.
	if ref := strings.ToLower(strings.TrimSpace(txn.Reference)); len(ref) >= 4 && strings.Contains(haystack, ref) {
		score += relevanceReferencePoints
	}

	if txn.AmountCents != 0 && containsAmount(haystack, txn.AmountCents) {
		score += relevanceAmountPoints
	}

	if senderMatchesPartner(c.Message.From, partner) {
		score += relevanceSenderPoints
	}

	score += messageDateScore(c.Message.Date, txn.Date)

	if counterpartyInMessage(c.Message.From, c.Message.Subject, txn.Counterparty) {
		score += relevanceNamePoints
	}

	if c.Filename != "" && looksLikeInvoiceFilename(c.Filename) {
		score += relevanceAttachmentPoints
	}

	if score > 100 {
		score = 100
	}
	return score
}

// containsAmount looks for the amount in the common European and US
// decimal formats.
func containsAmount(haystack string, cents int64) bool {
	if cents < 0 {
		cents = -cents
	}
	units, rest := cents/100, cents%100
	forms := []string{
		formatGrouped(units, rest, '.', ','), // 4.999,00
		formatGrouped(units, rest, ',', '.'), // 4,999.00
		formatGrouped(units, rest, 0, ','),   // 4999,00
		formatGrouped(units, rest, 0, '.'),   // 4999.00
	}
	for _, f := range forms {
		if strings.Contains(haystack, f) {
			return true
		}
	}
	return false
}

// formatGrouped renders units with an optional thousands separator and
// the given decimal mark.
func formatGrouped(units, rest int64, group byte, decimal byte) string {
	digits := []byte(nil)
	if units == 0 {
		digits = append(digits, '0')
	}
	var raw []byte
	for u := units; u > 0; u /= 10 {
		raw = append(raw, byte('0'+u%10))
	}
	for i := len(raw) - 1; i >= 0; i-- {
		digits = append(digits, raw[i])
		if group != 0 && i > 0 && i%3 == 0 {
			digits = append(digits, group)
		}
	}
	digits = append(digits, decimal, byte('0'+rest/10), byte('0'+rest%10))
	return string(digits)
}

func senderMatchesPartner(from string, partner *model.Partner) bool {
	if partner == nil {
		return false
	}
	domain := senderDomain(from)
	if domain == "" {
		return false
	}
	for _, d := range partner.EmailDomains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	if w := matcher.ExtractDomain(partner.Website); w != "" && strings.EqualFold(w, domain) {
		return true
	}
	return false
}

func senderDomain(from string) string {
	at := strings.LastIndexByte(from, '@')
	if at < 0 {
		return ""
	}
	domain := from[at+1:]
	domain = strings.TrimRight(domain, "> ")
	return strings.ToLower(domain)
}

func messageDateScore(msgDate, txnDate time.Time) float64 {
	if msgDate.IsZero() || txnDate.IsZero() {
		return 0
	}
	d := msgDate.Sub(txnDate)
	if d < 0 {
		d = -d
	}
	switch days := int(d.Hours() / 24); {
	case days <= 7:
		return relevanceDateClosePoints
	case days <= 30:
		return relevanceDateNearPoints
	default:
		return 0
	}
}

func counterpartyInMessage(from, subject, counterparty string) bool {
	if counterparty == "" {
		return false
	}
	sim := similarity.CompanyName(counterparty, displayName(from))
	if sim >= 75 {
		return true
	}
	name := similarity.NormalizeCompanyName(counterparty)
	return name != "" && strings.Contains(strings.ToLower(subject), name)
}

// displayName extracts the human part of "Acme Billing <billing@acme.com>".
func displayName(from string) string {
	if i := strings.IndexByte(from, '<'); i > 0 {
		return strings.Trim(strings.TrimSpace(from[:i]), `"`)
	}
	return from
}

var invoiceFilenamePattern = regexp.MustCompile(`(?i)(invoice|rechnung|receipt|facture|fattura|beleg|quittung)|\.pdf$`)

func looksLikeInvoiceFilename(filename string) bool {
	return invoiceFilenamePattern.MatchString(filename)
}
