package idempotency_test

import (
	"path/filepath"
	"testing"
	"time"

	"nexo/pkg/idempotency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *idempotency.Store {
	t.Helper()
	s, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, idempotency.ErrNotFound)
}

func TestSaveCreateIfAbsent(t *testing.T) {
	s := newTestStore(t)

	first, created, err := s.Save(&idempotency.Record{Key: "k1", Fingerprint: "f1", StatusCode: 200, Body: []byte(`{"ok":true}`)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.CreatedAt.IsZero())

	second, created, err := s.Save(&idempotency.Record{Key: "k1", Fingerprint: "f2", StatusCode: 500})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "f1", second.Fingerprint)
	assert.Equal(t, 200, second.StatusCode)

	got, err := s.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(got.Body))
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Save(&idempotency.Record{Key: "old", CreatedAt: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, _, err = s.Save(&idempotency.Record{Key: "fresh"})
	require.NoError(t, err)

	n, err := s.Purge(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get("old")
	assert.ErrorIs(t, err, idempotency.ErrNotFound)
	_, err = s.Get("fresh")
	assert.NoError(t, err)
}
