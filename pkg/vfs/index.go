package vfs

import "strings"

// LocalFile is an immutable byte-bearing file from the user's selection.
// Path is the relative-path hint from the host (may equal Name when the
// selection carried no directory information).
type LocalFile struct {
	Name string
	Path string
	Data []byte
}

// AssetIndex maps normalized reference keys to local files. A file is
// indexed under up to six alias keys: its full relative path, its basename,
// and its raw name, each in original and lowercased form.
type AssetIndex struct {
	files map[string]*LocalFile
}

// BuildIndex builds an index from a file set. When two files collide on a
// key (two differently-pathed textures sharing a basename), the later file
// wins; that ambiguity is accepted policy, since reference strings carry no
// way to disambiguate.
func BuildIndex(files []LocalFile) *AssetIndex {
	ix := &AssetIndex{files: make(map[string]*LocalFile, len(files)*4)}
	for i := range files {
		f := &files[i]
		for _, key := range fileKeys(f) {
			if key != "" {
				ix.files[key] = f
			}
		}
	}
	return ix
}

func fileKeys(f *LocalFile) []string {
	path := NormalizePath(f.Path)
	base := Basename(path)
	return []string{
		path, strings.ToLower(path),
		base, strings.ToLower(base),
		f.Name, strings.ToLower(f.Name),
	}
}

// Lookup returns the file indexed under key. Matching is case-sensitive;
// callers try a lowercased variant themselves (the resolver always probes
// both).
func (ix *AssetIndex) Lookup(key string) (*LocalFile, bool) {
	f, ok := ix.files[key]
	return f, ok
}

// Empty reports whether the index holds no files.
func (ix *AssetIndex) Empty() bool {
	return ix == nil || len(ix.files) == 0
}
