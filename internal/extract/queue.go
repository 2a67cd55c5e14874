// Package extract hands newly discovered files to the out-of-band
// field-extraction step. Extraction itself runs externally and flips
// the file's Extracted flag when done; unextracted rows are the work
// set, so enqueueing only needs to make the hand-off visible.
package extract

import (
	"context"
	"log/slog"

	"github.com/reconflow/reconflow/internal/service"
)

// Queue implements service.Extractor over the store. Files enter the
// extraction work set the moment they are saved with Extracted unset;
// Enqueue verifies the file exists and announces the hand-off.
type Queue struct {
	store service.Store
}

var _ service.Extractor = (*Queue)(nil)

// NewQueue creates an extraction queue backed by the given store.
func NewQueue(store service.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue marks a file for extraction. The file must already be
// persisted; a dangling ID is a caller bug and surfaces as an error.
func (q *Queue) Enqueue(ctx context.Context, fileID string) error {
	file, err := q.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	if file.Extracted {
		slog.Debug("File already extracted, skipping enqueue", "file_id", fileID)
		return nil
	}

	slog.Info("File queued for extraction",
		"file_id", fileID,
		"file_name", file.FileName)
	return nil
}
