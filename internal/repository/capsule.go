package repository

import (
	"context"

	"timecapsule/internal/model"
)

// CapsuleRepository defines data access for capsules using SQL queries only.
type CapsuleRepository interface {
	// Create inserts a new capsule and returns the stored row.
	Create(ctx context.Context, c *model.Capsule) (*model.Capsule, error)

	// FindByID returns a capsule by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Capsule, error)

	// List returns a page of capsules, newest first, and the total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Capsule], error)

	// Delete removes a capsule by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
