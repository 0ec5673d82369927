package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"timecapsule/internal/model"
	"timecapsule/internal/repository"
)

var (
	newKey = uuid.NewString
	now    = func() time.Time { return time.Now().UTC() }
)

// RecordPostgres stores attachment metadata in the uploads table.
// Append order is the BIGSERIAL seq column, so List never depends on clock skew.
type RecordPostgres struct {
	db *sql.DB
}

// NewRecordPostgres creates a new RecordPostgres store.
func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordStore = (*RecordPostgres)(nil)

// List returns the last limit records of a capsule in append order.
func (r *RecordPostgres) List(ctx context.Context, capsuleID string, limit int) ([]model.UploadRecord, error) {
	items := make([]model.UploadRecord, 0)
	if limit <= 0 {
		return items, nil
	}

	const q = `
		SELECT key, capsule_id, name, url, size, content_type, created_at
		FROM (
			SELECT seq, key, capsule_id, name, url, size, content_type, created_at
			FROM uploads
			WHERE capsule_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, q, capsuleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.UploadRecord
		if err := rows.Scan(
			&rec.Key,
			&rec.CapsuleID,
			&rec.Name,
			&rec.URL,
			&rec.Size,
			&rec.ContentType,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches one record of a capsule by key.
func (r *RecordPostgres) Get(ctx context.Context, capsuleID, key string) (*model.UploadRecord, error) {
	const q = `
		SELECT key, capsule_id, name, url, size, content_type, created_at
		FROM uploads
		WHERE capsule_id = $1 AND key = $2
	`
	var rec model.UploadRecord
	err := r.db.QueryRowContext(ctx, q, capsuleID, key).Scan(
		&rec.Key,
		&rec.CapsuleID,
		&rec.Name,
		&rec.URL,
		&rec.Size,
		&rec.ContentType,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Append inserts a record under a freshly generated key and returns the stored row.
func (r *RecordPostgres) Append(ctx context.Context, rec *model.UploadRecord) (*model.UploadRecord, error) {
	const q = `
		INSERT INTO uploads (key, capsule_id, name, url, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING key, capsule_id, name, url, size, content_type, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		newKey(),
		rec.CapsuleID,
		rec.Name,
		rec.URL,
		rec.Size,
		rec.ContentType,
		now(),
	)
	var out model.UploadRecord
	if err := row.Scan(
		&out.Key,
		&out.CapsuleID,
		&out.Name,
		&out.URL,
		&out.Size,
		&out.ContentType,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes one record. Zero affected rows is reported as repository.ErrNotFound.
func (r *RecordPostgres) Remove(ctx context.Context, capsuleID, key string) error {
	const q = `DELETE FROM uploads WHERE capsule_id = $1 AND key = $2`
	res, err := r.db.ExecContext(ctx, q, capsuleID, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
