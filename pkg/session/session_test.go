package session

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plinth3d/plinth/pkg/vfs"
	"github.com/plinth3d/plinth/pkg/view"
)

const sceneGLTF = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"nodes": [0]}],
	"nodes": [{"mesh": 0}],
	"meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [1, 1, 0], "max": [3, 3, 0]}],
	"bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 36}],
	"buffers": [{"uri": "geo/tri.bin", "byteLength": 36}],
	"extensionsRequired": ["KHR_draco_mesh_compression"],
	"extensionsUsed": ["KHR_draco_mesh_compression"]
}`

// triangleFiles is a model plus its external buffer, deliberately off-center
// around (2, 2, 0) so recentering is observable.
func triangleFiles() []vfs.LocalFile {
	coords := []float32{
		1, 1, 0,
		3, 1, 0,
		1, 3, 0,
	}
	buf := make([]byte, 0, len(coords)*4)
	for _, c := range coords {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
	}
	return []vfs.LocalFile{
		{Name: "scene.gltf", Data: []byte(sceneGLTF)},
		{Name: "tri.bin", Path: "geo/tri.bin", Data: buf},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(Options{Origin: "plinth://viewer/"})
	require.NoError(t, err)
	t.Cleanup(s.Teardown)
	return s
}

func finishWhenDone(t *testing.T, s *Session, c *LoadCycle) (*Scene, error) {
	t.Helper()
	<-c.Done()
	return s.Finish(c)
}

func TestLoadNoModelFile(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Load([]vfs.LocalFile{{Name: "readme.txt", Data: []byte("hi")}})
	assert.ErrorIs(t, err, ErrNoModelFile)

	_, err = s.Reload()
	assert.ErrorIs(t, err, ErrNoModelFile)
}

func TestLoadSuccess(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load(triangleFiles())
	require.NoError(t, err)
	assert.True(t, s.Loading())

	scene, err := finishWhenDone(t, s, cycle)
	require.NoError(t, err)
	require.NotNil(t, scene)
	assert.False(t, s.Loading())
	assert.Same(t, scene, s.Active())

	assert.Equal(t, 1, scene.Model.Mesh.TriangleCount())
	assert.Equal(t, []string{"KHR_draco_mesh_compression"}, scene.Model.ExtensionsRequired)

	// Recentered: the mesh center moved to the origin and the framing
	// targets it.
	assert.InDelta(t, 0, scene.Model.Mesh.Bounds.Center().Len(), 1e-6)
	assert.InDelta(t, 0, scene.Framing.Center.Len(), 1e-6)
	assert.Greater(t, scene.Framing.Distance, 0.0)

	// No qualifying materials: neutral lighting fallback.
	assert.Equal(t, view.PresetNeutral, scene.Lighting.Preset)
}

func TestLoadHandleLifecycle(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load(triangleFiles())
	require.NoError(t, err)
	<-cycle.Done()

	// Primary + the resolved buffer substitution.
	assert.Equal(t, 2, s.HandlesLive())

	_, err = s.Finish(cycle)
	require.NoError(t, err)

	// Primary released on success; the transient waits one tick.
	assert.Equal(t, 1, s.HandlesLive())

	s.Tick()
	assert.Equal(t, 0, s.HandlesLive())

	// Ticks are idempotent once drained.
	s.Tick()
	assert.Equal(t, 0, s.HandlesLive())
}

func TestLoadFailureReleasesEverything(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load([]vfs.LocalFile{{Name: "broken.gltf", Data: []byte("not gltf")}})
	require.NoError(t, err)

	scene, err := finishWhenDone(t, s, cycle)
	assert.Nil(t, scene)
	require.Error(t, err)
	assert.Contains(t, err.Error(), loadFailPrefix)

	// Failure releases primary and transients immediately, no tick needed.
	assert.Equal(t, 0, s.HandlesLive())
	assert.Nil(t, s.Active())
	assert.False(t, s.Loading())
}

func TestSupersededLoadIsStale(t *testing.T) {
	s := newTestSession(t)

	first, err := s.Load(triangleFiles())
	require.NoError(t, err)
	second, err := s.Load(triangleFiles())
	require.NoError(t, err)

	// The first cycle finished after being superseded: stale, fully
	// released, session state untouched.
	scene, err := finishWhenDone(t, s, first)
	assert.Nil(t, scene)
	assert.ErrorIs(t, err, ErrStale)
	assert.Nil(t, s.Active())

	scene, err = finishWhenDone(t, s, second)
	require.NoError(t, err)
	assert.Same(t, scene, s.Active())

	s.Tick()
	assert.Equal(t, 0, s.HandlesLive())
}

func TestReplaceDisposesPreviousModel(t *testing.T) {
	s := newTestSession(t)

	first, err := s.Load(triangleFiles())
	require.NoError(t, err)
	scene1, err := finishWhenDone(t, s, first)
	require.NoError(t, err)
	s.Tick()

	second, err := s.Reload()
	require.NoError(t, err)
	scene2, err := finishWhenDone(t, s, second)
	require.NoError(t, err)
	s.Tick()

	assert.NotSame(t, scene1, scene2)
	// The replaced model's geometry was dropped.
	assert.Zero(t, scene1.Model.Mesh.VertexCount())
	assert.Equal(t, 3, scene2.Model.Mesh.VertexCount())
	assert.Equal(t, 0, s.HandlesLive())
}

func TestTeardown(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load(triangleFiles())
	require.NoError(t, err)
	_, err = finishWhenDone(t, s, cycle)
	require.NoError(t, err)

	// Teardown before the tick still releases the deferred transients.
	s.Teardown()
	assert.Equal(t, 0, s.HandlesLive())
	assert.Nil(t, s.Active())

	_, err = s.Load(triangleFiles())
	assert.ErrorIs(t, err, ErrTornDown)
}

func TestTeardownReleasesInFlightCycle(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load(triangleFiles())
	require.NoError(t, err)

	// Teardown lands while the decode is (potentially) still running. By
	// session end every handle must be gone, including whatever the decode
	// goroutine mints afterwards.
	s.Teardown()
	<-cycle.Done()
	assert.Equal(t, 0, s.HandlesLive())

	_, err = s.Finish(cycle)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, 0, s.HandlesLive())
}

func TestOverrunningAccessorFailsLoad(t *testing.T) {
	s := newTestSession(t)

	// The accessor claims far more vertices than its 36-byte buffer holds.
	// That must surface as a load error, never kill the session.
	files := triangleFiles()
	files[0].Data = []byte(strings.Replace(sceneGLTF, `"count": 3`, `"count": 100`, 1))

	cycle, err := s.Load(files)
	require.NoError(t, err)

	scene, err := finishWhenDone(t, s, cycle)
	assert.Nil(t, scene)
	require.Error(t, err)
	assert.Contains(t, err.Error(), loadFailPrefix)
	assert.Equal(t, 0, s.HandlesLive())

	// The session stays usable for the next attempt.
	next, err := s.Load(triangleFiles())
	require.NoError(t, err)
	_, err = finishWhenDone(t, s, next)
	require.NoError(t, err)
}

func TestFinishAfterTeardownIsStale(t *testing.T) {
	s := newTestSession(t)

	cycle, err := s.Load(triangleFiles())
	require.NoError(t, err)
	<-cycle.Done()

	s.Teardown()

	_, err = s.Finish(cycle)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, 0, s.HandlesLive())
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newTestSession(t)
	b := newTestSession(t)

	ca, err := a.Load(triangleFiles())
	require.NoError(t, err)
	cb, err := b.Load(triangleFiles())
	require.NoError(t, err)

	_, err = finishWhenDone(t, a, ca)
	require.NoError(t, err)

	a.Teardown()
	assert.Equal(t, 0, a.HandlesLive())

	// Session B is untouched by A's teardown.
	scene, err := finishWhenDone(t, b, cb)
	require.NoError(t, err)
	require.NotNil(t, scene)
	b.Tick()
	assert.Equal(t, 0, b.HandlesLive())
}
