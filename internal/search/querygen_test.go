package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/model"
)

func TestGenerator_RankOrder(t *testing.T) {
	g := NewGenerator()

	txn := &model.Transaction{
		Reference:    "RE-2024.014",
		Counterparty: "ACME GMBH",
		AmountCents:  499900,
		Date:         mustDay("2024-03-10"),
	}
	partner := &model.Partner{
		Name:         "Acme GmbH",
		EmailDomains: []string{"acme.com"},
		VATID:        "DE 123456789",
		IBANs:        []string{"DE89 3704 0044 0532 0130 00"},
		LearnedPatterns: []model.LearnedPattern{
			{Glob: "acme direct debit*", Confidence: 90},
		},
	}

	queries := g.Generate(txn, partner, 10)
	require.NotEmpty(t, queries)

	assert.Equal(t, QueryInvoiceNumber, queries[0].Type)
	assert.Equal(t, "RE-2024.014", queries[0].Term)

	// Types appear in rank order.
	lastRank := -1
	for _, q := range queries {
		rank := queryRank[q.Type]
		assert.GreaterOrEqual(t, rank, lastRank, "query %+v out of order", q)
		lastRank = rank
	}

	types := make(map[QueryType]bool)
	for _, q := range queries {
		types[q.Type] = true
	}
	assert.True(t, types[QueryCompanyName])
	assert.True(t, types[QueryEmailDomain])
	assert.True(t, types[QueryVAT])
	assert.True(t, types[QueryPattern])
	assert.True(t, types[QueryFallback])
}

func TestGenerator_DedupCaseInsensitive(t *testing.T) {
	g := NewGenerator()

	// Partner name and counterparty normalize to the same term.
	txn := &model.Transaction{Counterparty: "ACME GMBH"}
	partner := &model.Partner{Name: "Acme Inc"}

	queries := g.Generate(txn, partner, 10)
	var companyTerms []string
	for _, q := range queries {
		if q.Type == QueryCompanyName {
			companyTerms = append(companyTerms, q.Term)
		}
	}
	assert.Equal(t, []string{"acme"}, companyTerms)
}

func TestGenerator_Cap(t *testing.T) {
	g := NewGenerator()

	txn := &model.Transaction{
		Reference:    "RE-1234-5678",
		Counterparty: "Acme GmbH",
		AmountCents:  100,
		Date:         mustDay("2024-01-01"),
	}
	partner := &model.Partner{
		Name:         "Acme",
		EmailDomains: []string{"acme.com", "acme.de"},
	}

	assert.Len(t, g.Generate(txn, partner, 2), 2)
	assert.Empty(t, g.Generate(txn, partner, 0))
}

func TestGenerator_SkipsNonInvoiceReferences(t *testing.T) {
	g := NewGenerator()

	txn := &model.Transaction{Reference: "thanks for lunch"}
	for _, q := range g.Generate(txn, nil, 10) {
		assert.NotEqual(t, QueryInvoiceNumber, q.Type)
	}
}

func TestGenerator_PatternStems(t *testing.T) {
	assert.Equal(t, "acme direct debit", patternStem("acme direct debit*"))
	assert.Equal(t, "paypal", patternStem("*paypal*"))
	assert.Empty(t, patternStem("ab*"), "short stems are too noisy")
	assert.Empty(t, patternStem("*"))
}
