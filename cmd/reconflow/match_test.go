package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/matcher"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/storage"
	"github.com/reconflow/reconflow/internal/testutil"
)

func matchTestTransaction() model.Transaction {
	return model.Transaction{
		ID:               "txn-001",
		Date:             time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Name:             "SEPA-UEBERWEISUNG Acme GmbH",
		Counterparty:     "Acme GmbH",
		CounterpartyIBAN: "DE89370400440532013000",
		Reference:        "INV-2026-001",
		Currency:         "EUR",
		AmountCents:      -4999,
	}
}

func matchTestPartner(id string) model.Partner {
	return model.Partner{
		ID:    id,
		Type:  model.PartnerTypeUser,
		Name:  "Acme GmbH",
		IBANs: []string{"DE89 3704 0044 0532 0130 00"},
	}
}

func savePartner(t *testing.T, store *storage.SQLiteStore, p model.Partner) {
	t.Helper()
	require.NoError(t, store.SavePartner(context.Background(), &p))
}

func TestApplyPartnerMatchesAutoApplies(t *testing.T) {
	m := matcher.NewPartnerMatcher(matcher.DefaultThresholds())
	txn := matchTestTransaction()
	partner := matchTestPartner("partner-1")

	changed := applyPartnerMatches(m, &txn, []model.Partner{partner}, nil)

	assert.True(t, changed)
	assert.Equal(t, "partner-1", txn.PartnerID)
	assert.Equal(t, model.PartnerTypeUser, txn.PartnerType)
	assert.Equal(t, model.OriginAuto, txn.PartnerLinkOrigin)
	assert.Equal(t, float64(100), txn.PartnerMatchConfidence)
	require.NotEmpty(t, txn.PartnerSuggestions)
	assert.Equal(t, model.SourceIBAN, txn.PartnerSuggestions[0].Source)
}

func TestApplyPartnerMatchesNeverOverwritesManualLink(t *testing.T) {
	m := matcher.NewPartnerMatcher(matcher.DefaultThresholds())
	txn := matchTestTransaction()
	txn.PartnerID = "partner-chosen-by-user"
	txn.PartnerLinkOrigin = model.OriginManual
	partner := matchTestPartner("partner-1")

	changed := applyPartnerMatches(m, &txn, []model.Partner{partner}, nil)

	assert.False(t, changed)
	assert.Equal(t, "partner-chosen-by-user", txn.PartnerID)
	assert.Equal(t, model.OriginManual, txn.PartnerLinkOrigin)
	// The match is still recorded for review.
	require.NotEmpty(t, txn.PartnerSuggestions)
	assert.Equal(t, "partner-1", txn.PartnerSuggestions[0].PartnerID)
}

func TestApplyPartnerMatchesNameOnlySuggests(t *testing.T) {
	m := matcher.NewPartnerMatcher(matcher.DefaultThresholds())
	txn := matchTestTransaction()
	txn.CounterpartyIBAN = ""
	partner := matchTestPartner("partner-1")
	partner.IBANs = nil

	changed := applyPartnerMatches(m, &txn, []model.Partner{partner}, nil)

	assert.False(t, changed)
	assert.Empty(t, txn.PartnerID)
	require.NotEmpty(t, txn.PartnerSuggestions)
	assert.Equal(t, model.SourceName, txn.PartnerSuggestions[0].Source)
}

func TestApplyCategorySuggestionsAutoApplies(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	c := matcher.NewCategoryClassifier(matcher.DefaultThresholds())

	savePartner(t, store, matchTestPartner("partner-1"))
	category := model.Category{ID: "cat-fees", Name: "Bank fees", MatchedPartnerIDs: []string{"partner-1"}}
	require.NoError(t, store.SaveCategory(ctx, &category))

	txn := matchTestTransaction()
	txn.PartnerID = "partner-1"
	txn.PartnerLinkOrigin = model.OriginAuto

	changed, err := applyCategorySuggestions(ctx, store, c, &txn, []model.Category{category})
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, "cat-fees", txn.NoReceiptCategoryID)
	assert.Equal(t, model.OriginAuto, txn.CategoryLinkOrigin)
	assert.True(t, txn.Complete)

	stored, err := store.GetCategory(ctx, "cat-fees")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TransactionCount)
}

func TestApplyCategorySuggestionsBlockedByConnectedFile(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	c := matcher.NewCategoryClassifier(matcher.DefaultThresholds())

	savePartner(t, store, matchTestPartner("partner-1"))
	category := model.Category{ID: "cat-fees", Name: "Bank fees", MatchedPartnerIDs: []string{"partner-1"}}
	require.NoError(t, store.SaveCategory(ctx, &category))

	txn := matchTestTransaction()
	txn.PartnerID = "partner-1"
	txn.FileIDs = []string{"file-1"}

	changed, err := applyCategorySuggestions(ctx, store, c, &txn, []model.Category{category})
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Empty(t, txn.NoReceiptCategoryID)
	// The classification is still recorded for review.
	require.NotEmpty(t, txn.CategorySuggestions)
	assert.Equal(t, "cat-fees", txn.CategorySuggestions[0].CategoryID)
}

func TestApplyCategorySuggestionsNeverOverwritesManualCategory(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	c := matcher.NewCategoryClassifier(matcher.DefaultThresholds())

	savePartner(t, store, matchTestPartner("partner-1"))
	category := model.Category{ID: "cat-fees", Name: "Bank fees", MatchedPartnerIDs: []string{"partner-1"}}
	require.NoError(t, store.SaveCategory(ctx, &category))

	txn := matchTestTransaction()
	txn.PartnerID = "partner-1"
	txn.NoReceiptCategoryID = "cat-chosen-by-user"
	txn.CategoryLinkOrigin = model.OriginManual

	changed, err := applyCategorySuggestions(ctx, store, c, &txn, []model.Category{category})
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Equal(t, "cat-chosen-by-user", txn.NoReceiptCategoryID)
	assert.Equal(t, model.OriginManual, txn.CategoryLinkOrigin)

	stored, err := store.GetCategory(ctx, "cat-fees")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TransactionCount)
}
