// Package search provides the building blocks the orchestrator's
// mailbox strategies run on: ranked search-query generation and
// relevance scoring of message candidates.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/similarity"
)

// QueryType classifies a generated search term. Lower Rank is tried
// first.
type QueryType string

// Query types in rank order.
const (
	QueryInvoiceNumber QueryType = "invoice_number"
	QueryCompanyName   QueryType = "company_name"
	QueryEmailDomain   QueryType = "email_domain"
	QueryIBAN          QueryType = "iban"
	QueryVAT           QueryType = "vat"
	QueryPattern       QueryType = "pattern"
	QueryFallback      QueryType = "fallback"
)

var queryRank = map[QueryType]int{
	QueryInvoiceNumber: 0,
	QueryCompanyName:   1,
	QueryEmailDomain:   2,
	QueryIBAN:          3,
	QueryVAT:           3,
	QueryPattern:       4,
	QueryFallback:      5,
}

// Query is one ranked search term.
type Query struct {
	Type QueryType
	Term string
}

// invoiceRefPattern matches reference strings that look like invoice
// numbers: at least one digit with an alphanumeric prefix or
// separator structure.
var invoiceRefPattern = regexp.MustCompile(`(?i)^[a-z]{0,8}[-./ ]?[0-9][0-9-./]{2,}$`)

// Generator derives ranked search terms from transaction and partner
// facts. Deterministic; the conversational query refinement lives
// outside this core.
type Generator struct{}

// NewGenerator creates a query generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns up to max queries, best-first, deduplicated
// case-insensitively. partner may be nil.
func (g *Generator) Generate(txn *model.Transaction, partner *model.Partner, max int) []Query {
	if max <= 0 {
		return nil
	}

	var queries []Query
	seen := make(map[string]bool)
	add := func(qt QueryType, term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if seen[key] {
			return
		}
		seen[key] = true
		queries = append(queries, Query{Type: qt, Term: term})
	}

	// Invoice number beats everything: it is the most selective term.
	if ref := strings.TrimSpace(txn.Reference); invoiceRefPattern.MatchString(ref) {
		add(QueryInvoiceNumber, ref)
	}

	if partner != nil {
		if name := similarity.NormalizeCompanyName(partner.Name); name != "" {
			add(QueryCompanyName, name)
		}
	}
	if name := similarity.NormalizeCompanyName(txn.Counterparty); name != "" {
		add(QueryCompanyName, name)
	}

	if partner != nil {
		for _, domain := range partner.EmailDomains {
			add(QueryEmailDomain, strings.ToLower(domain))
		}
		if domain := matcher.ExtractDomain(partner.Website); domain != "" {
			add(QueryEmailDomain, domain)
		}

		for _, iban := range partner.IBANs {
			add(QueryIBAN, matcher.NormalizeIBAN(iban))
		}
		if partner.VATID != "" {
			add(QueryVAT, strings.ToUpper(strings.ReplaceAll(partner.VATID, " ", "")))
		}

		for _, pat := range partner.LearnedPatterns {
			if stem := patternStem(pat.Glob); stem != "" {
				add(QueryPattern, stem)
			}
		}
	}

	// Generic fallback: amount plus month, for well-formatted invoice
	// mails that mention neither party nor reference.
	if txn.AmountCents != 0 && !txn.Date.IsZero() {
		add(QueryFallback, fmt.Sprintf("%s %s", formatAmount(txn.AmountCents), txn.Date.Format("2006-01")))
	}

	sortQueries(queries)
	if len(queries) > max {
		queries = queries[:max]
	}
	return queries
}

// patternStem strips glob wildcards down to the longest literal run.
// Stems shorter than four characters are too noisy to search with.
func patternStem(glob string) string {
	var longest string
	for _, part := range strings.Split(glob, "*") {
		part = strings.TrimSpace(part)
		if len(part) > len(longest) {
			longest = part
		}
	}
	if len(longest) < 4 {
		return ""
	}
	return strings.ToLower(longest)
}

func formatAmount(cents int64) string {
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// sortQueries orders by type rank, keeping insertion order within a
// rank.
func sortQueries(queries []Query) {
	for i := 1; i < len(queries); i++ {
		for j := i; j > 0 && queryRank[queries[j].Type] < queryRank[queries[j-1].Type]; j-- {
			queries[j], queries[j-1] = queries[j-1], queries[j]
		}
	}
}
