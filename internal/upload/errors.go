package upload

import (
	"errors"
	"fmt"
)

var (
	ErrFileRequired   = errors.New("file is required")
	ErrKeyRequired    = errors.New("record key is required")
	ErrInvalidLimit   = errors.New("limit must not be negative")
	ErrTransfer       = errors.New("transfer failed")
	ErrReferenceFetch = errors.New("reference fetch failed")
	ErrWrite          = errors.New("metadata write failed")
	ErrDelete         = errors.New("delete failed")

	errEmptyReference = errors.New("empty reference url")
)

// Delete phases.
const (
	PhaseMetadata = "metadata"
	PhaseBlob     = "blob"
)

// DeleteError reports which phase of a two-phase delete failed.
// It matches ErrDelete with errors.Is and unwraps to the backend cause.
type DeleteError struct {
	Phase string
	Key   string
	Err   error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s %s: %v", e.Phase, e.Key, e.Err)
}

func (e *DeleteError) Unwrap() []error {
	return []error{ErrDelete, e.Err}
}
