package vfs

import "sync"

// Lifecycle tracks every temporary handle created during one load cycle and
// guarantees each is released exactly once. Handles live in two disjoint
// pools: the primary pool holds the model file's handle for the whole load
// attempt; the transient pool accumulates handles minted during sub-resource
// resolution and is released in bulk once the resource graph settles.
//
// Every release operation is idempotent: releasing a handle that is not
// tracked (or was already released) is a no-op, never an error. Each load
// cycle gets its own Lifecycle, so an overlapping load cannot lose track of
// the previous cycle's handles.
type Lifecycle struct {
	mu        sync.Mutex
	store     *BlobStore
	closed    bool
	primary   map[string]struct{}
	transient map[string]struct{}
}

// NewLifecycle creates a lifecycle releasing into store.
func NewLifecycle(store *BlobStore) *Lifecycle {
	return &Lifecycle{
		store:     store,
		primary:   make(map[string]struct{}),
		transient: make(map[string]struct{}),
	}
}

// TrackPrimary registers a handle in the primary pool. On a closed
// lifecycle the handle is revoked immediately instead.
func (l *Lifecycle) TrackPrimary(handle string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.store.Revoke(handle)
		return
	}
	l.primary[handle] = struct{}{}
	l.mu.Unlock()
}

// RegisterTransient registers a handle in the transient pool. On a closed
// lifecycle the handle is revoked immediately instead.
func (l *Lifecycle) RegisterTransient(handle string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.store.Revoke(handle)
		return
	}
	l.transient[handle] = struct{}{}
	l.mu.Unlock()
}

// ReleasePrimary revokes a single primary handle if it is still tracked.
func (l *Lifecycle) ReleasePrimary(handle string) {
	l.mu.Lock()
	_, ok := l.primary[handle]
	delete(l.primary, handle)
	l.mu.Unlock()

	if ok {
		l.store.Revoke(handle)
	}
}

// ReleaseAllTransient revokes every transient handle accumulated so far.
func (l *Lifecycle) ReleaseAllTransient() {
	l.releasePool(&l.transient)
}

// ReleaseAllTracked revokes every handle in both pools.
func (l *Lifecycle) ReleaseAllTracked() {
	l.releasePool(&l.primary)
	l.releasePool(&l.transient)
}

// Close revokes every tracked handle and marks the lifecycle closed, so
// anything registered afterwards is revoked on arrival. A session tearing
// down under an in-flight load cycle uses this to keep the decode goroutine
// from stranding handles.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.ReleaseAllTracked()
}

func (l *Lifecycle) releasePool(pool *map[string]struct{}) {
	l.mu.Lock()
	handles := make([]string, 0, len(*pool))
	for h := range *pool {
		handles = append(handles, h)
	}
	*pool = make(map[string]struct{})
	l.mu.Unlock()

	for _, h := range handles {
		l.store.Revoke(h)
	}
}

// Tracked returns how many handles are currently tracked across both pools.
func (l *Lifecycle) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.primary) + len(l.transient)
}
