package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
)

func TestSavePartnerRoundTrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	partner := createTestPartner("partner-1", "Acme")
	partner.VATID = "DE123456789"
	partner.Website = "https://acme.example"
	partner.EmailDomains = []string{"acme.example"}
	partner.LearnedPatterns = []model.LearnedPattern{{Glob: "ACME*", Confidence: 95}}
	require.NoError(t, store.SavePartner(ctx, partner))

	got, err := store.GetPartner(ctx, "partner-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "DE123456789", got.VATID)
	assert.Equal(t, []string{"Acme*"}, got.Aliases)
	assert.Equal(t, []string{"DE89370400440532013000"}, got.IBANs)
	assert.Equal(t, []string{"acme.example"}, got.EmailDomains)
	require.Len(t, got.LearnedPatterns, 1)
	assert.Equal(t, "ACME*", got.LearnedPatterns[0].Glob)

	// Upsert replaces fields under the same ID.
	partner.Name = "Acme Holdings"
	require.NoError(t, store.SavePartner(ctx, partner))
	got, err = store.GetPartner(ctx, "partner-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", got.Name)
}

func TestListPartnersByType(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	user := createTestPartner("partner-user", "Beta")
	require.NoError(t, store.SavePartner(ctx, user))

	global := createTestPartner("partner-global", "Alpha")
	global.Type = model.PartnerTypeGlobal
	require.NoError(t, store.SavePartner(ctx, global))

	users, err := store.ListPartners(ctx, model.PartnerTypeUser)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "partner-user", users[0].ID)

	globals, err := store.ListPartners(ctx, model.PartnerTypeGlobal)
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "partner-global", globals[0].ID)
}

func TestDeletePartner(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePartner(ctx, createTestPartner("partner-1", "Acme")))

	require.NoError(t, store.DeletePartner(ctx, "partner-1", false))

	// Soft-deleted partners drop out of listings but stay loadable.
	list, err := store.ListPartners(ctx, model.PartnerTypeUser)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := store.GetPartner(ctx, "partner-1")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	// Deleting an already soft-deleted partner is a not-found.
	err = store.DeletePartner(ctx, "partner-1", false)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.DeletePartner(ctx, "partner-1", true))
	_, err = store.GetPartner(ctx, "partner-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPartnerHasFileHistory(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePartner(ctx, createTestPartner("partner-1", "Acme")))

	has, err := store.PartnerHasFileHistory(ctx, "partner-1")
	require.NoError(t, err)
	assert.False(t, has)

	file := createTestFile("file-1", "sha-1")
	file.PartnerID = "partner-1"
	require.NoError(t, store.SaveFile(ctx, file))

	has, err = store.PartnerHasFileHistory(ctx, "partner-1")
	require.NoError(t, err)
	assert.True(t, has)
}
