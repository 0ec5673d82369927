package repository

import (
	"context"

	"timecapsule/internal/model"
)

// RecordStore is the typed accessor over a capsule's attachment metadata collection.
// Records are append-only; there is no update.
type RecordStore interface {
	// List returns the most recent limit records of the capsule, oldest first (append order).
	// A zero limit returns an empty slice.
	List(ctx context.Context, capsuleID string, limit int) ([]model.UploadRecord, error)

	// Get returns one record of the capsule, or ErrNotFound.
	Get(ctx context.Context, capsuleID, key string) (*model.UploadRecord, error)

	// Append assigns a fresh key to rec and persists it. Keys are never reused.
	Append(ctx context.Context, rec *model.UploadRecord) (*model.UploadRecord, error)

	// Remove deletes the record with the given key.
	// It returns ErrNotFound when no record matched, including a key removed earlier.
	Remove(ctx context.Context, capsuleID, key string) error
}
