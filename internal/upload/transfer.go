package upload

import (
	"context"
	"sync"

	"timecapsule/internal/model"
)

// Transfer is the live handle of one upload.
//
// Progress yields strictly increasing percentages and is closed when the transfer
// reaches its terminal event. Done is closed after finalize has run; from then on
// Result reports the persisted record or the finalize outcome.
type Transfer struct {
	Path string

	progress chan int
	done     chan struct{}

	mu     sync.Mutex
	size   int64
	last   int
	record *model.UploadRecord
	err    error
}

func newTransfer(path string, size int64) *Transfer {
	return &Transfer{
		Path: path,
		// At most 101 distinct values are ever sent, so sends never block.
		progress: make(chan int, 101),
		done:     make(chan struct{}),
		size:     size,
		last:     -1,
	}
}

// Progress returns the percentage stream. It is not restartable.
func (t *Transfer) Progress() <-chan int {
	return t.progress
}

// Done is closed once the finalize step has completed.
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until finalize completes or ctx is done.
// A ctx error does not cancel the upload; it only stops waiting.
func (t *Transfer) Wait(ctx context.Context) (*model.UploadRecord, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the finalize outcome. Before Done is closed it returns nil, nil.
func (t *Transfer) Result() (*model.UploadRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record, t.err
}

// report converts a cumulative byte count into a percentage and emits it when it grew.
func (t *Transfer) report(transferred int64) {
	if t.size <= 0 {
		return
	}
	pct := int(transferred * 100 / t.size)
	if pct > 99 {
		// 100 is reserved for a transfer the backend acknowledged.
		pct = 99
	}
	t.emit(pct)
}

func (t *Transfer) emit(pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pct <= t.last {
		return
	}
	t.last = pct
	t.progress <- pct
}

func (t *Transfer) complete() {
	t.emit(100)
}

func (t *Transfer) settle(rec *model.UploadRecord, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record, t.err = rec, err
}
