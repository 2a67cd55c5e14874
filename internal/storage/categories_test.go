package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
)

func TestReceiptLostCategorySeeded(t *testing.T) {
	store := createTestStore(t)

	got, err := store.GetCategory(context.Background(), "receipt-lost")
	require.NoError(t, err)
	assert.True(t, got.ReceiptLost)
}

func TestSaveCategoryPreservesUsageCount(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	cat := &model.Category{
		ID:                "bank-fees",
		Name:              "Bank fees",
		MatchedPartnerIDs: []string{"partner-bank"},
		LearnedPatterns:   []model.LearnedPattern{{Glob: "*fee*", Confidence: 80}},
	}
	require.NoError(t, store.SaveCategory(ctx, cat))

	require.NoError(t, store.IncrementCategoryUsage(ctx, "bank-fees"))
	require.NoError(t, store.IncrementCategoryUsage(ctx, "bank-fees"))

	// Re-saving learned associations must not reset the count.
	cat.LearnedPatterns = append(cat.LearnedPatterns, model.LearnedPattern{Glob: "*charge*", Confidence: 75})
	require.NoError(t, store.SaveCategory(ctx, cat))

	got, err := store.GetCategory(ctx, "bank-fees")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TransactionCount)
	assert.Len(t, got.LearnedPatterns, 2)
	assert.Equal(t, []string{"partner-bank"}, got.MatchedPartnerIDs)
}

func TestIncrementCategoryUsageNotFound(t *testing.T) {
	store := createTestStore(t)
	err := store.IncrementCategoryUsage(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCategoriesOrderedByName(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategory(ctx, &model.Category{ID: "z", Name: "Zoll"}))
	require.NoError(t, store.SaveCategory(ctx, &model.Category{ID: "a", Name: "Abgaben"}))

	got, err := store.ListCategories(ctx)
	require.NoError(t, err)
	// Includes the seeded receipt-lost pseudo-category.
	require.Len(t, got, 3)
	assert.Equal(t, "Abgaben", got[0].Name)
	assert.Equal(t, "Zoll", got[2].Name)
}
