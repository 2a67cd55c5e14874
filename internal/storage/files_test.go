package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/common"
)

func TestSaveFileAndGetBySHA256(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	file := createTestFile("file-1", "abc123")
	require.NoError(t, store.SaveFile(ctx, file))

	got, err := store.GetFileBySHA256(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "file-1", got.ID)
	assert.True(t, got.Extracted)
	assert.Equal(t, int64(4999), got.AmountCents)
}

func TestSaveFileDuplicateSHA256(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, createTestFile("file-1", "abc123")))

	dup := createTestFile("file-2", "abc123")
	err := store.SaveFile(ctx, dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestGetFileBySHA256IncludesDeleted(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	file := createTestFile("file-1", "abc123")
	deleted := time.Now().UTC()
	file.DeletedAt = &deleted
	require.NoError(t, store.SaveFile(ctx, file))

	// GetFile hides soft-deleted rows.
	_, err := store.GetFile(ctx, "file-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The content-hash lookup still sees them so callers can revive.
	got, err := store.GetFileBySHA256(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	require.NoError(t, store.ReviveFile(ctx, "file-1"))

	got, err = store.GetFile(ctx, "file-1")
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())
}

func TestGetFileByMessageID(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	file := createTestFile("file-1", "abc123")
	file.SourceMessageID = "msg-42"
	require.NoError(t, store.SaveFile(ctx, file))

	got, err := store.GetFileByMessageID(ctx, "msg-42")
	require.NoError(t, err)
	assert.Equal(t, "file-1", got.ID)

	_, err = store.GetFileByMessageID(ctx, "msg-unknown")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListFilesNearDate(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	center := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	dates := map[string]time.Time{
		"file-inside":   center.AddDate(0, 0, 3),
		"file-edge":     center.AddDate(0, 0, -7),
		"file-outside":  center.AddDate(0, 0, 12),
		"file-negative": center.AddDate(0, 0, -20),
	}
	for id, d := range dates {
		f := createTestFile(id, id+"-sha")
		f.Date = d
		require.NoError(t, store.SaveFile(ctx, f))
	}

	// Unextracted files never surface as candidates.
	raw := createTestFile("file-raw", "raw-sha")
	raw.Extracted = false
	raw.Date = center
	require.NoError(t, store.SaveFile(ctx, raw))

	got, err := store.ListFilesNearDate(ctx, center, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.Contains(t, ids, "file-inside")
	assert.Contains(t, ids, "file-edge")
}

func TestSetPrecisionSearchHint(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, createTestFile("file-1", "abc123")))
	require.NoError(t, store.SetPrecisionSearchHint(ctx, "file-1", "txn-007"))

	got, err := store.GetFile(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-007", got.PrecisionSearchHint)

	err = store.SetPrecisionSearchHint(ctx, "ghost", "txn-007")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
