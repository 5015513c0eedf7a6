package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/5w1tchy/reading-list/internal/models"
	"github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	ctype   string
	err     error
}

func (m *memUploader) PutObject(_ context.Context, key, contentType string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	m.ctype = contentType
	return nil
}

func TestSnapshotOnce(t *testing.T) {
	ctx := context.Background()
	store := books.NewMemory()
	_, err := store.Create(ctx, books.NewBook{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	_, err = store.Create(ctx, books.NewBook{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	up := &memUploader{}
	at := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	key, err := SnapshotOnce(ctx, store, up, at)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/20250601T030000Z.json", key)
	assert.Equal(t, "application/json", up.ctype)

	var got snapshot
	require.NoError(t, json.Unmarshal(up.objects[key], &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Books, 2)
	assert.Equal(t, "Dune", got.Books[0].Title)
	assert.Equal(t, models.StatusToRead, got.Books[1].Status)
}

func TestSnapshotOnce_EmptyListIsArray(t *testing.T) {
	up := &memUploader{}
	key, err := SnapshotOnce(context.Background(), books.NewMemory(), up, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(up.objects[key]), `"books":[]`)
}

func TestSnapshotOnce_UploadError(t *testing.T) {
	up := &memUploader{err: errors.New("bucket gone")}
	_, err := SnapshotOnce(context.Background(), books.NewMemory(), up, time.Now())
	assert.ErrorContains(t, err, "bucket gone")
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	before := time.Date(2025, 1, 10, 2, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 10, 3, 0, 0, 0, loc), NextRun(before, 3, 0, loc))

	exactly := time.Date(2025, 1, 10, 3, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 11, 3, 0, 0, 0, loc), NextRun(exactly, 3, 0, loc))

	tbilisi := time.FixedZone("GET", 4*3600)
	utcNow := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) // 04:00 local
	next := NextRun(utcNow, 3, 0, tbilisi)
	assert.Equal(t, time.Date(2025, 1, 11, 3, 0, 0, 0, tbilisi), next)
}
