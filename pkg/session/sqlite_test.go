package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SetGetUpsert(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user", "currentCompanyId", []byte("c1"), SetOptions{}))
	require.NoError(t, s.Set(ctx, "user", "currentCompanyId", []byte("c2"), SetOptions{}))

	got, err := s.Get(ctx, "user", "currentCompanyId")
	require.NoError(t, err)
	assert.Equal(t, []byte("c2"), got)

	_, err = s.Get(ctx, "menu", "currentCompanyId")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_TTLExpiry(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.clock = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "user", "current", []byte(`{}`), SetOptions{TTL: 30 * time.Minute}))

	_, err := s.Get(ctx, "user", "current")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = s.Get(ctx, "user", "current")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Sweep(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.clock = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "menu", "current", []byte("m"), SetOptions{TTL: time.Minute}))
	require.NoError(t, s.Set(ctx, "user", "currentBranchId", []byte("b1"), SetOptions{}))

	now = now.Add(2 * time.Minute)
	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := s.Get(ctx, "user", "currentBranchId")
	require.NoError(t, err)
	assert.Equal(t, []byte("b1"), got)
}

func TestSQLiteStore_DeleteAndClear(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	var events []Event
	unsub := s.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsub()

	require.NoError(t, s.Set(ctx, "user", "current", []byte("u"), SetOptions{}))
	require.NoError(t, s.Delete(ctx, "user", "current"))
	_, err := s.Get(ctx, "user", "current")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "menu", "current", []byte("m"), SetOptions{SkipBroadcast: true}))
	require.NoError(t, s.ClearAll(ctx))
	_, err = s.Get(ctx, "menu", "current")
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, events, 3)
	assert.Equal(t, OpSet, events[0].Op)
	assert.Equal(t, OpDelete, events[1].Op)
	assert.Equal(t, OpClear, events[2].Op)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "user", "currentBranchId", []byte("b7"), SetOptions{}))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "user", "currentBranchId")
	require.NoError(t, err)
	assert.Equal(t, []byte("b7"), got)
}
