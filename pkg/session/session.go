// Package session owns the state of one viewer session: the asset index,
// the blob handle pools, and the single active scene. Everything here is
// mutated from the event loop only; the one concurrent piece is the decode
// goroutine, which communicates exclusively through the LoadCycle it owns
// until Done closes.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/plinth3d/plinth/pkg/math3d"
	"github.com/plinth3d/plinth/pkg/models"
	"github.com/plinth3d/plinth/pkg/vfs"
	"github.com/plinth3d/plinth/pkg/view"
)

var (
	// ErrNoModelFile means the file set contains no .gltf or .glb entry.
	ErrNoModelFile = errors.New("no model file in selection")

	// ErrStale marks a load cycle superseded by a newer load or a
	// teardown. Its handles are already released when Finish returns
	// this.
	ErrStale = errors.New("load cycle is stale")

	// ErrTornDown is returned for operations on a session after Teardown.
	ErrTornDown = errors.New("session is torn down")
)

const loadFailPrefix = "failed to load model"

// Options configures a session. Zero values fall back to the stock
// constants.
type Options struct {
	Origin     string
	FOVDegrees float64
	Oblique    math3d.Vec3
	Thresholds view.Thresholds
	Logger     *slog.Logger
}

// Scene is the active model with its derived per-load outputs.
type Scene struct {
	Model    *models.Model
	Framing  view.Framing
	Lighting view.Lighting
}

// Session is the explicit state object for one viewer lifetime.
type Session struct {
	log   *slog.Logger
	store *vfs.BlobStore

	origin     string
	fovDegrees float64
	oblique    math3d.Vec3
	thresholds view.Thresholds

	index *vfs.AssetIndex
	files []vfs.LocalFile

	// generation stamps load cycles; a finished cycle whose stamp no
	// longer matches is stale and must not touch session state.
	generation uint64

	active         *Scene
	pendingRelease []*vfs.Lifecycle
	inflight       *vfs.Lifecycle
	loading        bool
	torndown       bool
}

// New creates a session with its own blob store.
func New(opts Options) (*Session, error) {
	store, err := vfs.NewBlobStore()
	if err != nil {
		return nil, fmt.Errorf("create blob store: %w", err)
	}
	if opts.FOVDegrees == 0 {
		opts.FOVDegrees = 55
	}
	if opts.Oblique.Len() == 0 {
		opts.Oblique = view.DefaultOblique()
	}
	if opts.Thresholds == (view.Thresholds{}) {
		opts.Thresholds = view.DefaultThresholds()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		log:        opts.Logger,
		store:      store,
		origin:     opts.Origin,
		fovDegrees: opts.FOVDegrees,
		oblique:    opts.Oblique.Normalize(),
		thresholds: opts.Thresholds,
	}, nil
}

// LoadCycle is the future for one load attempt. The decode goroutine fills
// model/err and closes done; nothing else may touch them before that.
type LoadCycle struct {
	generation uint64
	lifecycle  *vfs.Lifecycle
	primary    string
	name       string

	done  chan struct{}
	model *models.Model
	err   error
}

// Done is closed once the decode goroutine has finished, success or not.
// Pass the cycle to Finish afterwards, from the event loop.
func (c *LoadCycle) Done() <-chan struct{} {
	return c.done
}

// Load starts a load cycle for a new file set: rebuilds the asset index
// wholesale, stamps a new generation (which makes any in-flight cycle
// stale), creates the primary handle, and kicks off decoding.
func (s *Session) Load(files []vfs.LocalFile) (*LoadCycle, error) {
	if s.torndown {
		return nil, ErrTornDown
	}

	main, ok := pickModelFile(files)
	if !ok {
		return nil, ErrNoModelFile
	}

	s.files = files
	s.index = vfs.BuildIndex(files)
	s.generation++

	cycle := &LoadCycle{
		generation: s.generation,
		lifecycle:  vfs.NewLifecycle(s.store),
		name:       main.Name,
		done:       make(chan struct{}),
	}

	handle, err := s.store.Create(main.Name, main.Data)
	if err != nil {
		return nil, fmt.Errorf("create primary handle: %w", err)
	}
	cycle.primary = handle
	cycle.lifecycle.TrackPrimary(handle)

	resolver := vfs.NewResolver(s.index, s.store, cycle.lifecycle, s.origin)
	loader := models.NewLoader(resolver.FS())

	s.loading = true
	s.inflight = cycle.lifecycle
	s.log.Debug("load started", "model", main.Name, "files", len(files), "generation", cycle.generation)

	go func(data []byte) {
		defer close(cycle.done)
		// A decode panic on a hostile document fails the cycle, never
		// the process.
		defer func() {
			if r := recover(); r != nil {
				cycle.model, cycle.err = nil, fmt.Errorf("decode panic: %v", r)
			}
		}()
		cycle.model, cycle.err = loader.Decode(cycle.name, data)
	}(main.Data)

	return cycle, nil
}

// Reload restarts the last submitted file set.
func (s *Session) Reload() (*LoadCycle, error) {
	if len(s.files) == 0 {
		return nil, ErrNoModelFile
	}
	return s.Load(s.files)
}

// Finish completes a load cycle on the event loop, after Done has closed.
//
// A stale cycle (superseded or torn down) has all its handles released and
// yields ErrStale; session state is untouched. A failed cycle releases all
// its handles and yields a wrapped error. A successful cycle releases the
// primary handle now, defers the transients one tick, disposes the previous
// model, and installs the new scene with framing and lighting derived.
func (s *Session) Finish(cycle *LoadCycle) (*Scene, error) {
	if cycle.generation != s.generation || s.torndown {
		cycle.lifecycle.ReleaseAllTracked()
		if cycle.model != nil {
			cycle.model.Release()
		}
		s.log.Debug("stale load discarded", "model", cycle.name, "generation", cycle.generation)
		return nil, ErrStale
	}

	s.loading = false
	s.inflight = nil

	if cycle.err != nil {
		cycle.lifecycle.ReleaseAllTracked()
		s.log.Error("load failed", "model", cycle.name, "error", cycle.err)
		return nil, fmt.Errorf("%s: %w", loadFailPrefix, cycle.err)
	}

	// The model is decoded; the primary handle has served its purpose.
	// Transient handles stay live until the next tick in case the decoder
	// surfaced readers that drain lazily.
	cycle.lifecycle.ReleasePrimary(cycle.primary)
	s.pendingRelease = append(s.pendingRelease, cycle.lifecycle)

	// Clear-before-replace: the previous model's geometry and textures go
	// before the new scene is installed.
	if s.active != nil {
		s.active.Model.Release()
		s.active = nil
	}

	model := cycle.model
	mesh := model.Mesh

	// Recenter so the orbit target is the origin.
	center := mesh.Bounds.Center()
	if center.Len() > 0 {
		mesh.Transform(math3d.Translate(center.Negate()))
	}

	s.active = &Scene{
		Model:    model,
		Framing:  view.Frame(mesh.Bounds, s.fovDegrees, s.oblique),
		Lighting: view.LightingFor(mesh, s.thresholds),
	}

	s.log.Info("load finished",
		"model", cycle.name,
		"triangles", mesh.TriangleCount(),
		"preset", s.active.Lighting.Preset.String(),
		"handles", cycle.lifecycle.Tracked(),
	)

	return s.active, nil
}

// Tick runs once per frame on the event loop and performs the deferred
// transient releases from cycles finished since the previous tick.
func (s *Session) Tick() {
	if len(s.pendingRelease) == 0 {
		return
	}
	for _, lc := range s.pendingRelease {
		lc.ReleaseAllTransient()
	}
	s.pendingRelease = s.pendingRelease[:0]
}

// Active returns the installed scene, nil before the first successful load.
func (s *Session) Active() *Scene {
	return s.active
}

// Loading reports whether a load cycle is in flight.
func (s *Session) Loading() bool {
	return s.loading
}

// HandlesLive returns the number of unreleased blob handles, for the HUD
// and for leak checks.
func (s *Session) HandlesLive() int {
	return s.store.Live()
}

// Teardown releases every handle and the active model, including the
// handles of a cycle still in flight; its lifecycle is closed so anything
// the decode goroutine registers afterwards is revoked on arrival. The
// session accepts no further loads; in-flight cycles passed to Finish later
// are detected as stale.
func (s *Session) Teardown() {
	if s.torndown {
		return
	}
	s.torndown = true
	s.generation++ // orphan in-flight cycles

	if s.inflight != nil {
		s.inflight.Close()
		s.inflight = nil
	}

	for _, lc := range s.pendingRelease {
		lc.ReleaseAllTransient()
	}
	s.pendingRelease = nil

	if s.active != nil {
		s.active.Model.Release()
		s.active = nil
	}
	s.index = nil
	s.files = nil

	s.log.Debug("session torn down", "handles_live", s.store.Live())
}

// pickModelFile selects the main model file from the set: the first entry
// with a .gltf or .glb extension.
func pickModelFile(files []vfs.LocalFile) (vfs.LocalFile, bool) {
	for _, f := range files {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".gltf") || strings.HasSuffix(name, ".glb") {
			return f, true
		}
	}
	return vfs.LocalFile{}, false
}
