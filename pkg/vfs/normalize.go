// Package vfs reconstructs a virtual filesystem from an unordered set of
// user-supplied files and rewrites the resource references a model loader
// issues against it. Temporary blob handles minted for matched resources are
// tracked per load cycle and released exactly once.
package vfs

import (
	"net/url"
	"strings"
)

// NormalizePath canonicalizes a raw resource reference into a stable lookup
// key: forward slashes, no blob-origin prefix, no query or fragment, percent
// escapes decoded, no leading "./" or "/". Idempotent, and never fails: on a
// malformed escape the string keeps its remaining escapes and gets the same
// slash and prefix stripping.
//
// The whole pipeline runs to a fixpoint, so keys that only surface after a
// decoding pass (an encoded "blob:" prefix, separators hidden in escapes)
// still collapse to the same canonical form. Terminates because every
// effective pass strictly shortens the string.
func NormalizePath(raw string) string {
	s := raw
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	// A blob handle carries an origin prefix ("blob:http://host/id" in a
	// browser, "blob:" tokens from the blob store here); the key is
	// whatever follows the scheme.
	for len(s) >= 5 && strings.EqualFold(s[:5], "blob:") {
		s = s[5:]
	}

	s = strings.ReplaceAll(s, "\\", "/")

	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}

	for {
		switch {
		case strings.HasPrefix(s, "./"):
			s = s[2:]
		case strings.HasPrefix(s, "/"):
			s = s[1:]
		default:
			return s
		}
	}
}

// Basename returns the last path element of an already-normalized key.
func Basename(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
