package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

type failingFs struct {
	afero.Fs
	mu   sync.Mutex
	fail bool
}

func (f *failingFs) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *failingFs) Rename(oldname, newname string) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.Fs.Rename(oldname, newname)
}

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func newTestRegistry(t *testing.T, fsys afero.Fs, opts Options) (*Registry, *storage.Store, *testClock) {
	t.Helper()
	store := storage.New(fsys, "/data", storage.Options{RetryDelay: time.Millisecond}, zerolog.Nop())
	clock := &testClock{current: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)}
	registry := NewRegistry(store, opts, zerolog.Nop())
	registry.now = clock.Now
	registry.sample = func() float64 { return 1 }
	return registry, store, clock
}

func TestRegistryCreateAndVerify(t *testing.T) {
	registry, _, clock := newTestRegistry(t, afero.NewMemMapFs(), Options{})
	ctx := context.Background()

	id, session, err := registry.Create(ctx, "test-agent", "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, id, 64)
	require.Equal(t, id, session.ID)
	require.Equal(t, "test-agent", session.UserAgent)

	clock.Advance(10 * time.Minute)
	require.True(t, registry.Verify(ctx, id))

	stored, ok := registry.Get(id)
	require.True(t, ok)
	require.Equal(t, clock.Now(), stored.LastAccess)
	require.Equal(t, session.CreatedAt, stored.CreatedAt)
}

func TestRegistryVerifyUnknownAndExpired(t *testing.T) {
	registry, _, clock := newTestRegistry(t, afero.NewMemMapFs(), Options{Timeout: time.Hour})
	ctx := context.Background()

	require.False(t, registry.Verify(ctx, ""))
	require.False(t, registry.Verify(ctx, "never-created"))

	id, _, err := registry.Create(ctx, "", "")
	require.NoError(t, err)

	// Access does not extend the absolute lifetime.
	clock.Advance(50 * time.Minute)
	require.True(t, registry.Verify(ctx, id))
	clock.Advance(11 * time.Minute)
	require.False(t, registry.Verify(ctx, id))

	_, ok := registry.Get(id)
	require.False(t, ok)
	require.Equal(t, Stats{}, registry.Stats())
}

func TestRegistryEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	registry, _, clock := newTestRegistry(t, afero.NewMemMapFs(), Options{MaxSessions: 20, EvictBatch: 10})
	ctx := context.Background()

	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		id, _, err := registry.Create(ctx, fmt.Sprintf("agent-%d", i), "")
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Second)
	}

	// Touch the oldest session so it survives eviction.
	require.True(t, registry.Verify(ctx, ids[0]))
	clock.Advance(time.Second)

	newID, _, err := registry.Create(ctx, "newcomer", "")
	require.NoError(t, err)

	require.Equal(t, 11, registry.Stats().Total)
	_, ok := registry.Get(ids[0])
	require.True(t, ok)
	_, ok = registry.Get(newID)
	require.True(t, ok)
	for _, id := range ids[1:11] {
		_, ok := registry.Get(id)
		require.False(t, ok)
	}
	for _, id := range ids[11:] {
		_, ok := registry.Get(id)
		require.True(t, ok)
	}
}

func TestRegistryCreateRollsBackOnPersistFailure(t *testing.T) {
	fsys := &failingFs{Fs: afero.NewMemMapFs()}
	registry, _, _ := newTestRegistry(t, fsys, Options{})
	ctx := context.Background()

	fsys.setFail(true)
	id, _, err := registry.Create(ctx, "agent", "addr")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrPersistence)
	require.Empty(t, id)
	require.Equal(t, 0, registry.Stats().Total)
}

func TestRegistryDeleteSurfacesPersistFailure(t *testing.T) {
	fsys := &failingFs{Fs: afero.NewMemMapFs()}
	registry, _, _ := newTestRegistry(t, fsys, Options{})
	ctx := context.Background()

	id, _, err := registry.Create(ctx, "agent", "addr")
	require.NoError(t, err)

	fsys.setFail(true)
	removed, err := registry.Delete(ctx, id)
	require.True(t, removed)
	require.ErrorIs(t, err, storage.ErrPersistence)
	require.False(t, registry.Verify(ctx, id))

	removed, err = registry.Delete(ctx, id)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestRegistryLoadRestoresPersistedTable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	first, store, clock := newTestRegistry(t, fsys, Options{})
	ctx := context.Background()

	id, _, err := first.Create(ctx, "agent", "addr")
	require.NoError(t, err)

	second := NewRegistry(store, Options{}, zerolog.Nop())
	second.now = clock.Now
	require.NoError(t, second.Load(ctx))
	require.True(t, second.Verify(ctx, id))
}

func TestRegistryLoadCorruptTableStartsEmpty(t *testing.T) {
	fsys := afero.NewMemMapFs()
	registry, store, _ := newTestRegistry(t, fsys, Options{})

	path, err := store.Path("sessions/admin")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, path, []byte(`{"sessions":[{"id":"short"}]}`), 0o644))

	require.NoError(t, registry.Load(context.Background()))
	require.Equal(t, 0, registry.Stats().Total)
}

func TestRegistryPurgeExpiredAndStats(t *testing.T) {
	registry, _, clock := newTestRegistry(t, afero.NewMemMapFs(), Options{Timeout: time.Hour})
	ctx := context.Background()

	_, _, err := registry.Create(ctx, "", "")
	require.NoError(t, err)
	clock.Advance(40 * time.Minute)
	_, _, err = registry.Create(ctx, "", "")
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	require.Equal(t, Stats{Total: 2, Active: 1, Expired: 1}, registry.Stats())
	require.Equal(t, 1, registry.PurgeExpired(ctx))
	require.Equal(t, Stats{Total: 1, Active: 1}, registry.Stats())
}

func TestRegistryVerifySamplesPersistence(t *testing.T) {
	registry, store, clock := newTestRegistry(t, afero.NewMemMapFs(), Options{PersistSampleRate: 0.1})
	ctx := context.Background()

	id, _, err := registry.Create(ctx, "", "")
	require.NoError(t, err)

	countWrites := func() int {
		stats, err := store.StatsSince(24 * time.Hour)
		require.NoError(t, err)
		return stats.Total
	}
	before := countWrites()

	clock.Advance(time.Minute)
	registry.sample = func() float64 { return 0.5 }
	require.True(t, registry.Verify(ctx, id))
	require.Equal(t, before, countWrites())

	registry.sample = func() float64 { return 0.05 }
	require.True(t, registry.Verify(ctx, id))
	require.Equal(t, before+1, countWrites())
}
