// Package upload drives attachment uploads end to end: it pushes the blob, streams
// progress, and on the transfer's terminal event resolves a durable reference and
// appends the metadata record. Deletes run the other way round, metadata first.
//
// Blob paths are BasePath/<file name>. Two uploads with the same name in one
// capsule overwrite each other's blob (last write wins) while both metadata records
// remain. Deleting and re-uploading the same name concurrently is unsupported.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"timecapsule/internal/model"
	"timecapsule/internal/repository"
	"timecapsule/internal/storage"
)

const defaultFinalizeTimeout = 30 * time.Second

// Config scopes a Coordinator to one owning capsule.
type Config struct {
	CapsuleID string
	BasePath  string

	// PublicBaseURL, when set, turns references into PublicBaseURL/<path>.
	// Otherwise references are presigned GET URLs valid for ReferenceExpiry.
	PublicBaseURL   string
	ReferenceExpiry time.Duration

	FinalizeTimeout time.Duration
}

// Coordinator uploads, lists and deletes the attachments of one capsule.
type Coordinator struct {
	store   storage.Storage
	records repository.RecordStore
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// New creates a Coordinator. log may be nil (slog.Default is used) and so may metrics.
func New(store storage.Storage, records repository.RecordStore, cfg Config, log *slog.Logger, metrics *Metrics) *Coordinator {
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = defaultFinalizeTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:   store,
		records: records,
		cfg:     cfg,
		log:     log.With("component", "upload", "capsule_id", cfg.CapsuleID),
		metrics: metrics,
		tracer:  otel.Tracer("timecapsule/internal/upload"),
	}
}

// Path returns the blob path for a file name.
func (c *Coordinator) Path(name string) string {
	return path.Join(c.cfg.BasePath, name)
}

// PushFile starts uploading rec.File and returns immediately.
//
// The coordinator owns rec until the transfer's Done channel is closed. On success
// rec carries the assigned Key, the Name and the URL. Cancelling ctx aborts the
// transfer; finalize still runs, detached from ctx and bounded by FinalizeTimeout.
func (c *Coordinator) PushFile(ctx context.Context, rec *model.UploadRecord) (*Transfer, error) {
	if rec == nil || rec.File == nil || rec.File.Body == nil {
		return nil, ErrFileRequired
	}
	name := fileName(rec.File.Name)
	if name == "" {
		return nil, ErrFileRequired
	}

	t := newTransfer(c.Path(name), rec.File.Size)
	ctx, span := c.tracer.Start(ctx, "upload.push", trace.WithAttributes(
		attribute.String("capsule.id", c.cfg.CapsuleID),
		attribute.String("upload.path", t.Path),
		attribute.Int64("upload.size", rec.File.Size),
	))
	t.emit(0)

	go c.run(ctx, span, t, rec, name)
	return t, nil
}

func (c *Coordinator) run(ctx context.Context, span trace.Span, t *Transfer, rec *model.UploadRecord, name string) {
	defer span.End()
	defer close(t.done)

	var (
		info   storage.ObjectInfo
		putErr error
	)
	// Runs once, after the progress stream's terminal event, whatever that event was.
	defer func() {
		if r := recover(); r != nil {
			putErr = fmt.Errorf("transfer panicked: %v", r)
		}
		t.settle(c.finalize(ctx, t.Path, rec, name, info, putErr))
	}()
	defer close(t.progress)

	size := rec.File.Size
	if size <= 0 {
		size = -1
	}
	info, putErr = c.store.Put(ctx, t.Path, rec.File.Body, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType(rec.File.ContentType),
		Metadata: map[string]string{
			"original-filename": rec.File.Name,
			"capsule-id":        c.cfg.CapsuleID,
		},
		Progress: t.report,
	})
	if putErr == nil {
		t.complete()
	}
}

func (c *Coordinator) finalize(ctx context.Context, key string, rec *model.UploadRecord, name string, info storage.ObjectInfo, putErr error) (*model.UploadRecord, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FinalizeTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "upload.finalize")
	defer span.End()

	log := c.log.With("path", key)
	fail := func(outcome string, err error) (*model.UploadRecord, error) {
		log.ErrorContext(ctx, "upload finalize failed", "event", outcome, "error", err)
		c.metrics.upload(outcome, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	if putErr != nil {
		return fail(OutcomeTransferError, fmt.Errorf("%w: %w", ErrTransfer, putErr))
	}

	stat, ref, err := c.reference(ctx, key)
	if err != nil {
		return fail(OutcomeReferenceError, c.rollback(ctx, key, fmt.Errorf("%w: %w", ErrReferenceFetch, err)))
	}

	size := stat.Size
	if size <= 0 {
		size = info.Size
	}
	if size <= 0 {
		size = rec.File.Size
	}
	if size < 0 {
		size = 0
	}
	pending := &model.UploadRecord{
		CapsuleID:   c.cfg.CapsuleID,
		Name:        name,
		URL:         ref,
		Size:        size,
		ContentType: contentType(rec.File.ContentType),
	}
	stored, err := c.records.Append(ctx, pending)
	if err != nil {
		return fail(OutcomeWriteError, c.rollback(ctx, key, fmt.Errorf("%w: %w", ErrWrite, err)))
	}

	file := rec.File
	*rec = *stored
	rec.File = file

	log.InfoContext(ctx, "upload finalized", "event", "record_appended", "key", stored.Key, "size", stored.Size)
	c.metrics.upload(OutcomeOK, stored.Size)
	return stored, nil
}

// reference resolves a durable fetch URL for a blob that must already exist, along
// with the blob's stored info. An empty URL is an error.
func (c *Coordinator) reference(ctx context.Context, key string) (storage.ObjectInfo, string, error) {
	info, err := c.store.Stat(ctx, key)
	if err != nil {
		return storage.ObjectInfo{}, "", err
	}
	var ref string
	if c.cfg.PublicBaseURL != "" {
		ref, err = url.JoinPath(c.cfg.PublicBaseURL, key)
	} else {
		ref, err = c.store.PresignGet(ctx, key, c.cfg.ReferenceExpiry)
	}
	if err != nil {
		return storage.ObjectInfo{}, "", err
	}
	if ref == "" {
		return storage.ObjectInfo{}, "", errEmptyReference
	}
	return info, ref, nil
}

// rollback deletes a blob whose metadata could not be written.
func (c *Coordinator) rollback(ctx context.Context, key string, cause error) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return errors.Join(cause, fmt.Errorf("rollback delete %s: %w", key, err))
	}
	return cause
}

// ListRecent returns at most n records, oldest to newest by append order.
func (c *Coordinator) ListRecent(ctx context.Context, n int) ([]model.UploadRecord, error) {
	if n < 0 {
		return nil, ErrInvalidLimit
	}
	return c.records.List(ctx, c.cfg.CapsuleID, n)
}

// DeleteFile removes the metadata record, then the blob. A metadata failure leaves
// the blob untouched. A blob failure leaves an orphaned blob; nothing reconciles it.
func (c *Coordinator) DeleteFile(ctx context.Context, rec *model.UploadRecord) error {
	if rec == nil || rec.Key == "" {
		return &DeleteError{Phase: PhaseMetadata, Err: ErrKeyRequired}
	}
	name := fileName(rec.Name)
	if name == "" {
		return &DeleteError{Phase: PhaseMetadata, Key: rec.Key, Err: ErrFileRequired}
	}

	ctx, span := c.tracer.Start(ctx, "upload.delete", trace.WithAttributes(
		attribute.String("capsule.id", c.cfg.CapsuleID),
		attribute.String("upload.key", rec.Key),
	))
	defer span.End()
	log := c.log.With("key", rec.Key, "path", c.Path(name))

	if err := c.records.Remove(ctx, c.cfg.CapsuleID, rec.Key); err != nil {
		derr := &DeleteError{Phase: PhaseMetadata, Key: rec.Key, Err: err}
		log.ErrorContext(ctx, "delete aborted", "event", OutcomeMetadataError, "error", err)
		c.metrics.delete(OutcomeMetadataError)
		span.RecordError(derr)
		span.SetStatus(codes.Error, OutcomeMetadataError)
		return derr
	}

	if err := c.store.Delete(ctx, c.Path(name)); err != nil {
		derr := &DeleteError{Phase: PhaseBlob, Key: rec.Key, Err: err}
		log.ErrorContext(ctx, "blob left orphaned", "event", OutcomeBlobError, "error", err)
		c.metrics.delete(OutcomeBlobError)
		span.RecordError(derr)
		span.SetStatus(codes.Error, OutcomeBlobError)
		return derr
	}

	log.InfoContext(ctx, "attachment deleted", "event", "attachment_deleted")
	c.metrics.delete(OutcomeOK)
	return nil
}

func fileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case ".", "/", "..":
		return ""
	}
	return base
}

func contentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
