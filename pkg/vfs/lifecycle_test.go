package vfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	store, err := NewBlobStore()
	require.NoError(t, err)
	return store
}

func TestBlobStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Create("robot.bin", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, IsHandle(handle))
	assert.Equal(t, 1, store.Live())

	f, err := store.Open(handle)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, []byte{1, 2, 3}, data)

	assert.True(t, store.Revoke(handle))
	assert.Equal(t, 0, store.Live())

	_, err = store.Open(handle)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestBlobStoreRevokeIdempotent(t *testing.T) {
	store := newTestStore(t)
	handle, err := store.Create("x", nil)
	require.NoError(t, err)

	assert.True(t, store.Revoke(handle))
	assert.False(t, store.Revoke(handle))
	assert.False(t, store.Revoke("blob:never-existed"))
}

func TestBlobStoreHandlesAreUnique(t *testing.T) {
	store := newTestStore(t)
	a, err := store.Create("same-name.bin", []byte("a"))
	require.NoError(t, err)
	b, err := store.Create("same-name.bin", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLifecycleReleasesExactlyOnce(t *testing.T) {
	store := newTestStore(t)
	lc := NewLifecycle(store)

	primary, err := store.Create("scene.glb", []byte("glb"))
	require.NoError(t, err)
	lc.TrackPrimary(primary)

	for range 3 {
		h, err := store.Create("dep.bin", []byte("dep"))
		require.NoError(t, err)
		lc.RegisterTransient(h)
	}
	assert.Equal(t, 4, lc.Tracked())
	assert.Equal(t, 4, store.Live())

	lc.ReleasePrimary(primary)
	assert.Equal(t, 3, store.Live())

	// Idempotent: a second release of anything changes nothing.
	lc.ReleasePrimary(primary)
	assert.Equal(t, 3, store.Live())

	lc.ReleaseAllTransient()
	lc.ReleaseAllTransient()
	assert.Equal(t, 0, store.Live())
	assert.Equal(t, 0, lc.Tracked())
}

func TestLifecycleReleaseAllTracked(t *testing.T) {
	store := newTestStore(t)
	lc := NewLifecycle(store)

	p, err := store.Create("scene.glb", nil)
	require.NoError(t, err)
	lc.TrackPrimary(p)
	h, err := store.Create("dep.bin", nil)
	require.NoError(t, err)
	lc.RegisterTransient(h)

	lc.ReleaseAllTracked()
	assert.Equal(t, 0, store.Live())

	// Releasing an untracked handle is a no-op, never an error.
	lc.ReleasePrimary("blob:unknown")
	lc.ReleaseAllTracked()
}

func TestLifecycleCloseRevokesLateRegistrations(t *testing.T) {
	store := newTestStore(t)
	lc := NewLifecycle(store)

	p, err := store.Create("scene.glb", nil)
	require.NoError(t, err)
	lc.TrackPrimary(p)
	h, err := store.Create("dep.bin", nil)
	require.NoError(t, err)
	lc.RegisterTransient(h)

	lc.Close()
	assert.Equal(t, 0, store.Live())

	// Handles registered after close must be revoked on arrival, not
	// stranded: a decoder may still be minting them mid-teardown.
	late, err := store.Create("late.bin", nil)
	require.NoError(t, err)
	lc.RegisterTransient(late)
	assert.Equal(t, 0, store.Live())
	assert.Equal(t, 0, lc.Tracked())

	latePrimary, err := store.Create("late.glb", nil)
	require.NoError(t, err)
	lc.TrackPrimary(latePrimary)
	assert.Equal(t, 0, store.Live())

	// Close is idempotent.
	lc.Close()
	assert.Equal(t, 0, store.Live())
}

func TestLifecyclesAreIndependent(t *testing.T) {
	// Two overlapping load cycles must not release each other's handles.
	store := newTestStore(t)
	first := NewLifecycle(store)
	second := NewLifecycle(store)

	h1, err := store.Create("gen1.bin", nil)
	require.NoError(t, err)
	first.RegisterTransient(h1)

	h2, err := store.Create("gen2.bin", nil)
	require.NoError(t, err)
	second.RegisterTransient(h2)

	first.ReleaseAllTracked()
	assert.Equal(t, 1, store.Live())

	_, err = store.Open(h2)
	assert.NoError(t, err)

	second.ReleaseAllTracked()
	assert.Equal(t, 0, store.Live())
}
