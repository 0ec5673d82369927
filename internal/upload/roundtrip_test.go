package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/logging"
	"timecapsule/internal/model"
	"timecapsule/internal/repository"
	"timecapsule/internal/storage"
)

// memStore keeps blobs in memory and reports progress in fixed-size chunks.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	chunk int
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, chunk: 256 << 10}
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	var buf bytes.Buffer
	b := make([]byte, s.chunk)
	for {
		if err := ctx.Err(); err != nil {
			return storage.ObjectInfo{}, err
		}
		n, err := r.Read(b)
		buf.Write(b[:n])
		if n > 0 && opt.Progress != nil {
			opt.Progress(int64(buf.Len()))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return storage.ObjectInfo{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = buf.Bytes()
	return storage.ObjectInfo{Key: key, Size: int64(buf.Len())}, nil
}

func (s *memStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "mem://" + key, nil
}

func (s *memStore) get(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[strings.TrimPrefix(url, "mem://")]
	return b, ok
}

// memRecords is an append-only record collection.
type memRecords struct {
	mu    sync.Mutex
	seq   int
	items []model.UploadRecord
}

func (m *memRecords) List(_ context.Context, capsuleID string, limit int) ([]model.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.UploadRecord
	for _, r := range m.items {
		if r.CapsuleID == capsuleID {
			all = append(all, r)
		}
	}
	if limit < len(all) {
		all = all[len(all)-limit:]
	}
	return append([]model.UploadRecord{}, all...), nil
}

func (m *memRecords) Get(_ context.Context, capsuleID, key string) (*model.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.CapsuleID == capsuleID && r.Key == key {
			out := r
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRecords) Append(_ context.Context, rec *model.UploadRecord) (*model.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	out := *rec
	out.Key = fmt.Sprintf("key-%d", m.seq)
	out.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	m.items = append(m.items, out)
	return &out, nil
}

func (m *memRecords) Remove(_ context.Context, capsuleID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.items {
		if r.CapsuleID == capsuleID && r.Key == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memRecords) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func pushAndWait(t *testing.T, c *Coordinator, name string, body []byte) (*model.UploadRecord, []int) {
	t.Helper()
	tr, err := c.PushFile(context.Background(), &model.UploadRecord{File: &model.LocalFile{
		Name: name,
		Size: int64(len(body)),
		Body: bytes.NewReader(body),
	}})
	require.NoError(t, err)
	progress := drain(t, tr)
	rec, err := wait(t, tr)
	require.NoError(t, err)
	return rec, progress
}

func TestRoundTrip_UploadThenList(t *testing.T) {
	blobs := newMemStore()
	records := &memRecords{}
	c := New(blobs, records, testConfig(), logging.Discard(), nil)

	body := bytes.Repeat([]byte("x"), 2<<20)
	rec, progress := pushAndWait(t, c, "photo.jpg", body)

	assert.Equal(t, 0, progress[0])
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
	assert.Contains(t, progress, 50)

	got, err := c.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "photo.jpg", got[0].Name)
	assert.Equal(t, rec.Key, got[0].Key)
	assert.Equal(t, int64(2<<20), got[0].Size)

	stored, ok := blobs.get(got[0].URL)
	require.True(t, ok, "reference resolves to the uploaded blob")
	assert.Equal(t, body, stored)
}

func TestRoundTrip_ListRecentBounds(t *testing.T) {
	records := &memRecords{}
	c := New(newMemStore(), records, testConfig(), logging.Discard(), nil)
	for i := 0; i < 3; i++ {
		pushAndWait(t, c, fmt.Sprintf("f%d.txt", i), []byte("data"))
	}

	for n := 0; n <= 5; n++ {
		got, err := c.ListRecent(context.Background(), n)
		require.NoError(t, err)
		assert.Len(t, got, min(n, 3), "n=%d", n)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].CreatedAt.Before(got[i].CreatedAt), "oldest first")
		}
	}

	got, _ := c.ListRecent(context.Background(), 2)
	assert.Equal(t, []string{"f1.txt", "f2.txt"}, []string{got[0].Name, got[1].Name})
}

func TestRoundTrip_SameNameOverwritesBlob(t *testing.T) {
	blobs := newMemStore()
	records := &memRecords{}
	c := New(blobs, records, testConfig(), logging.Discard(), nil)

	first, _ := pushAndWait(t, c, "a.txt", []byte("first"))
	second, _ := pushAndWait(t, c, "a.txt", []byte("second"))

	assert.NotEqual(t, first.Key, second.Key)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 2, records.len())
	b, ok := blobs.get(first.URL)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), b)
}

func TestRoundTrip_DeleteRemovesBoth(t *testing.T) {
	blobs := newMemStore()
	records := &memRecords{}
	c := New(blobs, records, testConfig(), logging.Discard(), nil)
	rec, _ := pushAndWait(t, c, "a.txt", []byte("data"))

	require.NoError(t, c.DeleteFile(context.Background(), rec))

	assert.Zero(t, records.len())
	_, ok := blobs.get(rec.URL)
	assert.False(t, ok)

	err := c.DeleteFile(context.Background(), rec)
	assert.ErrorIs(t, err, ErrDelete)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoundTrip_ConcurrentUploads(t *testing.T) {
	records := &memRecords{}
	c := New(newMemStore(), records, testConfig(), logging.Discard(), nil)

	transfers := make([]*Transfer, 8)
	for i := range transfers {
		tr, err := c.PushFile(context.Background(), &model.UploadRecord{File: &model.LocalFile{
			Name: fmt.Sprintf("f%d.bin", i),
			Size: 1 << 20,
			Body: bytes.NewReader(bytes.Repeat([]byte{byte(i)}, 1<<20)),
		}})
		require.NoError(t, err)
		transfers[i] = tr
	}
	for _, tr := range transfers {
		_, err := wait(t, tr)
		assert.NoError(t, err)
	}

	assert.Equal(t, 8, records.len())
}
