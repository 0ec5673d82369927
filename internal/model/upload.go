package model

import (
	"io"
	"time"
)

// LocalFile is the transient payload handed to an upload. It only lives for the
// duration of the upload call and is never persisted.
type LocalFile struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// UploadRecord represents one stored attachment and its discoverability metadata.
// Key and URL are empty until the record has been persisted.
type UploadRecord struct {
	Key         string     `json:"key,omitempty"`
	CapsuleID   string     `json:"capsule_id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	CreatedAt   time.Time  `json:"created_at"`
	File        *LocalFile `json:"-"`
}

// Persisted reports whether the record has been written to the record store.
func (r *UploadRecord) Persisted() bool {
	return r.Key != "" && r.URL != ""
}
