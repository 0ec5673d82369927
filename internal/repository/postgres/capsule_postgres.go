package postgres

import (
	"context"
	"database/sql"

	"timecapsule/internal/model"
	"timecapsule/internal/repository"
)

// CapsulePostgres is a PostgreSQL implementation of repository.CapsuleRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CapsulePostgres struct {
	db *sql.DB
}

// NewCapsulePostgres creates a new CapsulePostgres repository.
func NewCapsulePostgres(db *sql.DB) *CapsulePostgres {
	return &CapsulePostgres{db: db}
}

var _ repository.CapsuleRepository = (*CapsulePostgres)(nil)

// Create inserts a new capsule row and returns the stored record.
func (r *CapsulePostgres) Create(ctx context.Context, c *model.Capsule) (*model.Capsule, error) {
	const q = `
		INSERT INTO capsules (id, title, message, open_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, message, open_at, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		c.ID,
		c.Title,
		c.Message,
		c.OpenAt,
		c.CreatedAt,
	)
	var out model.Capsule
	if err := row.Scan(&out.ID, &out.Title, &out.Message, &out.OpenAt, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single capsule by its ID.
func (r *CapsulePostgres) FindByID(ctx context.Context, id string) (*model.Capsule, error) {
	const q = `
		SELECT id, title, message, open_at, created_at
		FROM capsules
		WHERE id = $1
	`
	var c model.Capsule
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Title, &c.Message, &c.OpenAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns capsules using LIMIT/OFFSET pagination and a total count.
func (r *CapsulePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Capsule], error) {
	const qCount = `SELECT COUNT(*) FROM capsules`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, title, message, open_at, created_at
		FROM capsules
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Capsule, 0)
	for rows.Next() {
		var c model.Capsule
		if err := rows.Scan(&c.ID, &c.Title, &c.Message, &c.OpenAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Capsule]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a capsule by ID. It does not return an error if the row does not exist.
func (r *CapsulePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM capsules WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
