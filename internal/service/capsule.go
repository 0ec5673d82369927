package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"timecapsule/internal/model"
	"timecapsule/internal/repository"
	"timecapsule/internal/storage"
	"timecapsule/internal/upload"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrTitleRequired = errors.New("title is required")
	ErrNotFound      = errors.New("capsule not found")
	// ErrAttachmentNotFound is returned when a capsule holds no attachment with the key.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

const (
	defaultPageSize = 10
	// deleteBatch bounds how many attachments a capsule delete lists per round.
	deleteBatch = 100
	// deleteWorkers bounds concurrent attachment deletes during a capsule delete.
	deleteWorkers = 8
)

// CreateCapsuleInput carries the fields a client may set on a new capsule.
type CreateCapsuleInput struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	OpenAt  time.Time `json:"open_at"`
}

// CapsuleListResult is the service-level DTO for paginated capsules.
type CapsuleListResult struct {
	Items []model.Capsule `json:"data"`
	Total int             `json:"total"`
}

// UploadSettings configures the coordinators built per capsule.
type UploadSettings struct {
	BasePath        string
	PublicBaseURL   string
	ReferenceExpiry time.Duration
	FinalizeTimeout time.Duration
}

// CapsuleService defines the capsule use cases and the attachment use cases scoped to one capsule.
type CapsuleService interface {
	// Create stores a new capsule. A zero OpenAt means the capsule opens immediately.
	Create(ctx context.Context, in CreateCapsuleInput) (*model.Capsule, error)

	// List returns capsules using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*CapsuleListResult, error)

	// Get returns a single capsule by its ID.
	Get(ctx context.Context, id string) (*model.Capsule, error)

	// Delete removes every attachment of the capsule, then the capsule itself.
	Delete(ctx context.Context, id string) error

	// Attach starts uploading file into the capsule. The upload outcome is reported by the Transfer.
	Attach(ctx context.Context, capsuleID string, file *model.LocalFile) (*upload.Transfer, error)

	// ListAttachments returns at most n of the capsule's most recent attachments, oldest first.
	ListAttachments(ctx context.Context, capsuleID string, n int) ([]model.UploadRecord, error)

	// DeleteAttachment removes one attachment's metadata and blob.
	DeleteAttachment(ctx context.Context, capsuleID, key string) error
}

type capsuleService struct {
	capsules repository.CapsuleRepository
	records  repository.RecordStore
	store    storage.Storage
	settings UploadSettings
	log      *slog.Logger
	metrics  *upload.Metrics
	now      func() time.Time
}

// NewCapsuleService constructs a new CapsuleService. metrics may be nil.
func NewCapsuleService(
	capsules repository.CapsuleRepository,
	records repository.RecordStore,
	store storage.Storage,
	settings UploadSettings,
	log *slog.Logger,
	metrics *upload.Metrics,
) CapsuleService {
	if log == nil {
		log = slog.Default()
	}
	return &capsuleService{
		capsules: capsules,
		records:  records,
		store:    store,
		settings: settings,
		log:      log,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// coordinator scopes attachment operations to one capsule's blob prefix and record collection.
func (s *capsuleService) coordinator(capsuleID string) *upload.Coordinator {
	return upload.New(s.store, s.records, upload.Config{
		CapsuleID:       capsuleID,
		BasePath:        path.Join(s.settings.BasePath, capsuleID),
		PublicBaseURL:   s.settings.PublicBaseURL,
		ReferenceExpiry: s.settings.ReferenceExpiry,
		FinalizeTimeout: s.settings.FinalizeTimeout,
	}, s.log, s.metrics)
}

func (s *capsuleService) Create(ctx context.Context, in CreateCapsuleInput) (*model.Capsule, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	now := s.now()
	openAt := in.OpenAt
	if openAt.IsZero() {
		openAt = now
	}
	return s.capsules.Create(ctx, &model.Capsule{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   in.Message,
		OpenAt:    openAt.UTC(),
		CreatedAt: now,
	})
}

// List returns paginated capsules without exposing repository types.
func (s *capsuleService) List(ctx context.Context, limit, offset int) (*CapsuleListResult, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.capsules.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &CapsuleListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *capsuleService) Get(ctx context.Context, id string) (*model.Capsule, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	c, err := s.capsules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete drains the capsule's attachments in batches, then removes the capsule row.
// The first failed attachment delete aborts the whole operation and the capsule stays.
func (s *capsuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	coord := s.coordinator(id)

	for {
		batch, err := coord.ListRecent(ctx, deleteBatch)
		if err != nil {
			return fmt.Errorf("list attachments: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(deleteWorkers)
		for i := range batch {
			rec := &batch[i]
			g.Go(func() error {
				return coord.DeleteFile(gctx, rec)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return s.capsules.Delete(ctx, id)
}

func (s *capsuleService) Attach(ctx context.Context, capsuleID string, file *model.LocalFile) (*upload.Transfer, error) {
	if _, err := s.Get(ctx, capsuleID); err != nil {
		return nil, err
	}
	return s.coordinator(capsuleID).PushFile(ctx, &model.UploadRecord{File: file})
}

func (s *capsuleService) ListAttachments(ctx context.Context, capsuleID string, n int) ([]model.UploadRecord, error) {
	if _, err := s.Get(ctx, capsuleID); err != nil {
		return nil, err
	}
	return s.coordinator(capsuleID).ListRecent(ctx, n)
}

func (s *capsuleService) DeleteAttachment(ctx context.Context, capsuleID, key string) error {
	if capsuleID == "" || key == "" {
		return ErrIDRequired
	}
	rec, err := s.records.Get(ctx, capsuleID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	return s.coordinator(capsuleID).DeleteFile(ctx, rec)
}
