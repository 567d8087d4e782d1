package vfs

import (
	"io/fs"
	"net/url"
	"strings"
)

// Resolver intercepts the resource URLs a model loader requests and swaps in
// temporary handles for files present in the asset index. URLs it cannot or
// need not serve pass through unchanged: embedded data URIs, anything when
// the index is empty, and references with no index match (the loader reports
// its own failure for those, which is expected policy).
type Resolver struct {
	index  *AssetIndex
	store  *BlobStore
	cycle  *Lifecycle
	origin string
}

// NewResolver builds a resolver for one load cycle. Every substituted
// handle is registered in the cycle's transient pool. origin is the base
// URL the loader resolves relative references against before requesting
// them; absolute requests under it are mapped back to relative keys.
func NewResolver(index *AssetIndex, store *BlobStore, cycle *Lifecycle, origin string) *Resolver {
	return &Resolver{index: index, store: store, cycle: cycle, origin: origin}
}

// Resolve maps a requested URL to an effective one. Safe to call once per
// sub-resource, including while earlier requests are still being read.
func (r *Resolver) Resolve(requested string) string {
	if r.index.Empty() || strings.HasPrefix(requested, "data:") {
		return requested
	}

	for _, key := range r.candidates(requested) {
		f, ok := r.index.Lookup(key)
		if !ok {
			continue
		}
		handle, err := r.store.Create(f.Name, f.Data)
		if err != nil {
			// Out of handles is indistinguishable from unresolved;
			// let the loader surface the miss.
			return requested
		}
		r.cycle.RegisterTransient(handle)
		return handle
	}
	return requested
}

// candidates derives the ordered probe-key set for a request: the normalized
// raw string, the normalized path of its absolute-URL form (the loader may
// have resolved a relative reference against the origin before requesting
// it), the basename of each, and the lowercased variant of everything.
func (r *Resolver) candidates(requested string) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(k string) {
		if k == "" {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(NormalizePath(requested))

	if u, err := url.Parse(requested); err == nil {
		if u.IsAbs() {
			add(NormalizePath(u.Path))
		} else if r.origin != "" {
			if base, err := url.Parse(r.origin); err == nil {
				add(NormalizePath(base.ResolveReference(u).Path))
			}
		}
	}

	for _, k := range keys[:len(keys):len(keys)] {
		add(Basename(k))
	}
	for _, k := range keys[:len(keys):len(keys)] {
		add(strings.ToLower(k))
	}
	return keys
}

// FS exposes the resolver as a filesystem, which is the seam the glTF
// decoder reads external buffers through: every Open is resolved against
// the index and served from blob storage. Unresolved names report
// fs.ErrNotExist so the decoder's own error surfaces.
func (r *Resolver) FS() fs.FS {
	return resolverFS{r}
}

type resolverFS struct {
	r *Resolver
}

func (f resolverFS) Open(name string) (fs.File, error) {
	eff := f.r.Resolve(name)
	if IsHandle(eff) {
		return f.r.store.Open(eff)
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
