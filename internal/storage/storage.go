package storage

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// Package storage contains the blob store abstraction used for capsule attachments.
// Implementations stream content to an S3-compatible backend and never touch local disk.

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// ProgressFunc receives the cumulative number of bytes handed to the backend so far.
type ProgressFunc func(transferred int64)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType, Metadata and Progress are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
	Progress    ProgressFunc
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob store contract: upload with progress, stat, delete and reference.
type Storage interface {
	// Put uploads an object under the given key. Writing an existing key replaces it.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat returns object info, or ErrObjectNotFound when the key holds nothing.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// progressReader turns the amount of data read through it into ProgressFunc calls.
// minio-go reads from PutObjectOptions.Progress with a buffer sized to each uploaded part.
// Parts may be uploaded in parallel, so the running total is atomic.
type progressReader struct {
	total atomic.Int64
	fn    ProgressFunc
}

func newProgressReader(fn ProgressFunc) *progressReader {
	if fn == nil {
		return nil
	}
	return &progressReader{fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.fn(p.total.Add(int64(len(b))))
	return len(b), nil
}

// countingReader forwards reads from r and reports the running byte count.
type countingReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.total += int64(n)
		c.fn(c.total)
	}
	return n, err
}

func withProgress(r io.Reader, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &countingReader{r: r, fn: fn}
}
