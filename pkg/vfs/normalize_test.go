package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"textures/robot.bin", "textures/robot.bin"},
		{"./textures/robot.bin", "textures/robot.bin"},
		{"/textures/robot.bin", "textures/robot.bin"},
		{".//textures/robot.bin", "textures/robot.bin"},
		{"textures\\robot.bin", "textures/robot.bin"},
		{"textures/robot.bin?v=2", "textures/robot.bin"},
		{"textures/robot.bin#frag", "textures/robot.bin"},
		{"my%20model/tex.png", "my model/tex.png"},
		{"my%2520model/tex.png", "my model/tex.png"},
		{"blob:http://localhost/abc-123", "http://localhost/abc-123"},
		{"blob:000001-scene.glb", "000001-scene.glb"},
		{"", ""},
		{"robot.bin", "robot.bin"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizePath(c.in), "input %q", c.in)
	}
}

func TestNormalizePathMalformedEscape(t *testing.T) {
	// Decode failure falls back to the raw string with best-effort
	// stripping, never an error.
	assert.Equal(t, "tex%zz.png", NormalizePath("./tex%zz.png"))
	assert.Equal(t, "100%", NormalizePath("100%"))
}

func TestNormalizePathIdempotent(t *testing.T) {
	inputs := []string{
		"textures/robot.bin",
		"./a/b/../c",
		"/abs/path.png",
		"a%2520b",
		"a%252525252520b",
		"blob%3Ahttp://x/y",
		"tex%zz.png",
		"100%",
		"?#",
		"\\\\server\\share\\f.bin",
		"blob:blob:x",
		"%2F%2Fetc",
		"./%2e/tex.png",
	}
	for _, s := range inputs {
		once := NormalizePath(s)
		assert.Equal(t, once, NormalizePath(once), "not idempotent for %q", s)
	}
}
