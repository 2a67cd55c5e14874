package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/model"
)

func newTestClassifier() *CategoryClassifier {
	return NewCategoryClassifier(DefaultThresholds())
}

func feeTxn() *model.Transaction {
	return &model.Transaction{
		ID:           "t1",
		Counterparty: "Sparkasse Berlin",
		Name:         "KONTOFUEHRUNG ENTGELT",
		PartnerID:    "p-bank",
	}
}

func bankPartner() *model.Partner {
	return &model.Partner{ID: "p-bank", Name: "Sparkasse"}
}

func TestCategoryClassifier_PartnerAndPatternCombine(t *testing.T) {
	c := newTestClassifier()

	categories := []model.Category{{
		ID:                "c-fees",
		Name:              "Bank fees",
		MatchedPartnerIDs: []string{"p-bank"},
		LearnedPatterns:   []model.LearnedPattern{{Glob: "*ENTGELT*", Confidence: 80}},
	}}

	got := c.Classify(feeTxn(), bankPartner(), categories, true)
	require.Len(t, got, 1)
	assert.Equal(t, "partner+pattern", got[0].Source)
	// Pattern 80 + combined bonus 15, no usage yet.
	assert.Equal(t, 95.0, got[0].Confidence)
	assert.True(t, c.ShouldAutoApply(got[0]))
}

func TestCategoryClassifier_PartnerOnlyIsAtAutoApply(t *testing.T) {
	c := newTestClassifier()

	categories := []model.Category{{
		ID:                "c-fees",
		MatchedPartnerIDs: []string{"p-bank"},
	}}

	got := c.Classify(feeTxn(), bankPartner(), categories, true)
	require.Len(t, got, 1)
	assert.Equal(t, "partner", got[0].Source)
	assert.Equal(t, 89.0, got[0].Confidence)
	assert.True(t, c.ShouldAutoApply(got[0]))
}

func TestCategoryClassifier_PatternOnlyKeepsOwnConfidence(t *testing.T) {
	c := newTestClassifier()

	categories := []model.Category{{
		ID:              "c-fees",
		LearnedPatterns: []model.LearnedPattern{{Glob: "*ENTGELT*", Confidence: 72}},
	}}

	got := c.Classify(feeTxn(), nil, categories, true)
	require.Len(t, got, 1)
	assert.Equal(t, "pattern", got[0].Source)
	assert.Equal(t, 72.0, got[0].Confidence)
	assert.False(t, c.ShouldAutoApply(got[0]))
}

func TestCategoryClassifier_UsageBoostIsLogarithmic(t *testing.T) {
	c := newTestClassifier()

	classify := func(count int) float64 {
		categories := []model.Category{{
			ID:                "c-fees",
			MatchedPartnerIDs: []string{"p-bank"},
			TransactionCount:  count,
		}}
		got := c.Classify(feeTxn(), bankPartner(), categories, true)
		require.Len(t, got, 1)
		return got[0].Confidence
	}

	atZero := classify(0)
	atOne := classify(1)
	atTen := classify(10)
	atHundred := classify(100)

	// A heavily used category strictly outranks a rarely used one.
	assert.Greater(t, atHundred, atOne)
	// Early usage matters more: the 0→10 step exceeds the 10→100 step.
	assert.Greater(t, atTen-atZero, atHundred-atTen)
	// And the boost is capped.
	assert.LessOrEqual(t, atHundred-atZero, 10.0)
}

func TestCategoryClassifier_NoFileHistoryBoost(t *testing.T) {
	c := newTestClassifier()

	categories := []model.Category{{
		ID:                "c-fees",
		MatchedPartnerIDs: []string{"p-bank"},
	}}

	withHistory := c.Classify(feeTxn(), bankPartner(), categories, true)
	withoutHistory := c.Classify(feeTxn(), bankPartner(), categories, false)
	require.Len(t, withHistory, 1)
	require.Len(t, withoutHistory, 1)
	assert.Equal(t, withHistory[0].Confidence+5, withoutHistory[0].Confidence)
}

func TestCategoryClassifier_SkipsReceiptLostAndWeakSuggestions(t *testing.T) {
	c := newTestClassifier()

	categories := []model.Category{
		{
			ID:                "c-lost",
			ReceiptLost:       true,
			MatchedPartnerIDs: []string{"p-bank"},
		},
		{
			ID:              "c-weak",
			LearnedPatterns: []model.LearnedPattern{{Glob: "*ENTGELT*", Confidence: 55}},
		},
	}

	got := c.Classify(feeTxn(), bankPartner(), categories, true)
	assert.Empty(t, got)
}

func TestCategoryClassifier_TopThreeRanked(t *testing.T) {
	c := newTestClassifier()

	var categories []model.Category
	for i, conf := range []float64{65, 85, 70, 75} {
		categories = append(categories, model.Category{
			ID:              string(rune('a' + i)),
			LearnedPatterns: []model.LearnedPattern{{Glob: "*ENTGELT*", Confidence: conf}},
		})
	}

	got := c.Classify(feeTxn(), nil, categories, true)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].CategoryID)
	assert.Equal(t, 85.0, got[0].Confidence)
	assert.Equal(t, 70.0, got[2].Confidence)
}
