package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func robotFileSet() []LocalFile {
	return []LocalFile{
		{Name: "scene.gltf", Path: "scene.gltf", Data: []byte("{}")},
		{Name: "Robot.BIN", Path: "textures/Robot.BIN", Data: []byte{1, 2, 3}},
	}
}

func TestIndexAliasKeys(t *testing.T) {
	ix := BuildIndex(robotFileSet())

	for _, key := range []string{
		"textures/Robot.BIN",
		"textures/robot.bin",
		"Robot.BIN",
		"robot.bin",
	} {
		f, ok := ix.Lookup(key)
		require.True(t, ok, "key %q", key)
		assert.Equal(t, "Robot.BIN", f.Name)
	}
}

func TestIndexLookupIsCaseSensitive(t *testing.T) {
	ix := BuildIndex(robotFileSet())

	// Mixed-case variants that are neither the original nor the lowercase
	// alias miss; the resolver is responsible for the lowercase retry.
	_, ok := ix.Lookup("TEXTURES/ROBOT.BIN")
	assert.False(t, ok)
	_, ok = ix.Lookup("textures/robot.bin")
	assert.True(t, ok)
}

func TestIndexBasenameCollisionLastWins(t *testing.T) {
	ix := BuildIndex([]LocalFile{
		{Name: "tex.png", Path: "a/tex.png", Data: []byte("a")},
		{Name: "tex.png", Path: "b/tex.png", Data: []byte("b")},
	})

	f, ok := ix.Lookup("tex.png")
	require.True(t, ok)
	assert.Equal(t, []byte("b"), f.Data)

	// Full paths still disambiguate.
	f, ok = ix.Lookup("a/tex.png")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), f.Data)
}

func TestIndexEmpty(t *testing.T) {
	assert.True(t, BuildIndex(nil).Empty())
	assert.True(t, (*AssetIndex)(nil).Empty())
	assert.False(t, BuildIndex(robotFileSet()).Empty())
}
