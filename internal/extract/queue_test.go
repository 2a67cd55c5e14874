package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/model"
	"github.com/reconflow/reconflow/internal/testutil"
)

func TestQueue_EnqueueUnextracted(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	file := &model.File{ID: "file-1", SHA256: "abc123", FileName: "invoice.pdf"}
	require.NoError(t, store.SaveFile(ctx, file))

	q := NewQueue(store)
	assert.NoError(t, q.Enqueue(ctx, "file-1"))
}

func TestQueue_EnqueueMissingFile(t *testing.T) {
	store := testutil.SetupTestDB(t)

	q := NewQueue(store)
	err := q.Enqueue(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
