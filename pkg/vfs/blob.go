package vfs

import (
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
)

// HandlePrefix marks a temporary handle minted by a BlobStore.
const HandlePrefix = "blob:"

// ErrRevoked is returned when a handle is opened after release.
var ErrRevoked = fmt.Errorf("blob handle revoked")

// BlobStore mints temporary byte-addressable handles for local file
// contents, backed by an in-memory filesystem. A handle stays readable until
// it is revoked; revocation is the only way a blob leaves memory.
//
// The store itself does not track ownership: a Lifecycle owns each handle
// and guarantees exactly-once revocation.
type BlobStore struct {
	mu   sync.Mutex
	fs   *mem.FS
	seq  uint64
	live map[string]struct{}
}

// NewBlobStore creates an empty store.
func NewBlobStore() (*BlobStore, error) {
	memfs, err := mem.NewFS()
	if err != nil {
		return nil, fmt.Errorf("blob store filesystem: %w", err)
	}
	return &BlobStore{fs: memfs, live: make(map[string]struct{})}, nil
}

// Create copies data into the store and returns a fresh handle. The name is
// only a debugging hint carried in the handle token.
func (s *BlobStore) Create(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	path := fmt.Sprintf("%06d-%s", s.seq, sanitizeBlobName(name))

	f, err := hackpadfs.OpenFile(s.fs, path,
		hackpadfs.FlagWriteOnly|hackpadfs.FlagCreate|hackpadfs.FlagTruncate, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob %q: %w", path, err)
	}
	if _, err := hackpadfs.WriteFile(f, data); err != nil {
		f.Close()
		return "", fmt.Errorf("write blob %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob %q: %w", path, err)
	}

	handle := HandlePrefix + path
	s.live[handle] = struct{}{}
	return handle, nil
}

// IsHandle reports whether url is a handle token (not necessarily live).
func IsHandle(url string) bool {
	return strings.HasPrefix(url, HandlePrefix)
}

// Open opens the bytes behind a live handle.
func (s *BlobStore) Open(handle string) (fs.File, error) {
	s.mu.Lock()
	_, ok := s.live[handle]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("open %q: %w", handle, ErrRevoked)
	}
	return s.fs.Open(strings.TrimPrefix(handle, HandlePrefix))
}

// Revoke releases a handle and frees its bytes. Revoking an unknown or
// already-revoked handle is a no-op; it reports whether something was freed.
func (s *BlobStore) Revoke(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[handle]; !ok {
		return false
	}
	delete(s.live, handle)
	// Best effort: the handle is dead either way.
	_ = hackpadfs.Remove(s.fs, strings.TrimPrefix(handle, HandlePrefix))
	return true
}

// Live returns the number of unreleased handles. After a load cycle fully
// settles this must be zero.
func (s *BlobStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// sanitizeBlobName keeps handle tokens to a single path element.
func sanitizeBlobName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = Basename(name)
	if name == "" {
		name = "blob"
	}
	return name
}
