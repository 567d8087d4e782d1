package main

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/plinth3d/plinth/pkg/config"
	"github.com/plinth3d/plinth/pkg/math3d"
	"github.com/plinth3d/plinth/pkg/models"
	"github.com/plinth3d/plinth/pkg/panel"
	"github.com/plinth3d/plinth/pkg/render"
	"github.com/plinth3d/plinth/pkg/session"
	"github.com/plinth3d/plinth/pkg/vfs"
)

// OrbitAxis smooths one orbit axis: impulses add velocity, a critically
// damped spring decays it back to rest.
type OrbitAxis struct {
	Velocity float64
	spring   harmonica.Spring
	accel    float64
}

// NewOrbitAxis creates an axis tuned for the given frame rate.
func NewOrbitAxis(fps int) OrbitAxis {
	return OrbitAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped
		spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update returns this frame's angular delta and decays the velocity.
func (a *OrbitAxis) Update() float64 {
	delta := a.Velocity
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
	return delta
}

// app is the viewer's event-loop state. Everything in here is touched only
// from loop(); the decode goroutine lives behind the session's LoadCycle.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	sess *session.Session

	term         *uv.Terminal
	termRenderer *render.TerminalRenderer
	fb           *render.Framebuffer
	camera       *render.OrbitCamera
	rasterizer   *render.Rasterizer
	panel        *panel.Panel

	width, height int

	inflight *session.LoadCycle
	scene    *session.Scene
	surfaces []render.Surface

	yaw, pitch OrbitAxis

	wireframe  bool
	background render.Color
	status     string

	// FPS counter state
	fps       float64
	fpsFrames int
	fpsTime   time.Time

	// Mouse orbit state
	orbiting               bool
	lastMouseX, lastMouseY int

	quit bool
}

func newApp(cfg config.Config, term *uv.Terminal, width, height int, log *slog.Logger) (*app, error) {
	sess, err := session.New(session.Options{
		FOVDegrees: cfg.FOVDegrees,
		Thresholds: cfg.Thresholds(),
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		sess:       sess,
		term:       term,
		camera:     render.NewOrbitCamera(),
		panel:      panel.New(cfg.PanelMargin),
		yaw:        NewOrbitAxis(cfg.FPS),
		pitch:      NewOrbitAxis(cfg.FPS),
		background: render.RGB(30, 30, 40),
		status:     "loading...",
		fpsTime:    time.Now(),
	}
	a.resize(width, height)
	return a, nil
}

// resize rebuilds the render targets for a new terminal size.
func (a *app) resize(width, height int) {
	a.width, a.height = width, height
	a.term.Erase()

	if a.termRenderer == nil {
		a.term.Resize(width, height)
		a.termRenderer = render.NewTerminalRenderer(a.term, width, height)
	} else {
		a.termRenderer.SetSize(width, height)
	}
	fbWidth, fbHeight := a.termRenderer.FramebufferSize()
	a.fb = render.NewFramebuffer(fbWidth, fbHeight)
	a.rasterizer = render.NewRasterizer(a.camera, a.fb)
	a.camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	a.applyLighting()

	a.panel.SetContainer(width, height)
}

// submit starts loading a new file set.
func (a *app) submit(files []vfs.LocalFile) error {
	cycle, err := a.sess.Load(files)
	if err != nil {
		return err
	}
	a.inflight = cycle
	a.status = "loading..."
	return nil
}

// reload restarts the last file set.
func (a *app) reload() {
	cycle, err := a.sess.Reload()
	if err != nil {
		a.status = err.Error()
		return
	}
	a.inflight = cycle
	a.status = "reloading..."
}

// pollLoad installs a finished load cycle, if any.
func (a *app) pollLoad() {
	if a.inflight == nil {
		return
	}
	select {
	case <-a.inflight.Done():
	default:
		return
	}

	cycle := a.inflight
	a.inflight = nil

	scene, err := a.sess.Finish(cycle)
	switch {
	case errors.Is(err, session.ErrStale):
		return
	case err != nil:
		a.status = err.Error()
		return
	}

	a.installScene(scene)
}

// installScene applies a freshly loaded scene: camera framing, lighting,
// surfaces, panel content.
func (a *app) installScene(scene *session.Scene) {
	a.scene = scene
	a.surfaces = surfacesFor(scene.Model)

	f := scene.Framing
	a.camera.SetTarget(f.Center)
	a.camera.SetDistanceLimits(f.MinDistance, f.MaxDistance)
	a.camera.SetClipPlanes(f.Near, f.Far)
	a.camera.SetFOV(a.cfg.FOVDegrees * degToRad)
	a.camera.LookFrom(f.Position)

	a.applyLighting()
	a.panel.SetExtensions(scene.Model.ExtensionsRequired, scene.Model.ExtensionsUsed)

	a.status = fmt.Sprintf("%s — %d triangles, %s lighting",
		scene.Model.Mesh.Name,
		scene.Model.Mesh.TriangleCount(),
		scene.Lighting.Preset,
	)
}

const degToRad = 3.14159265358979323846 / 180

// applyLighting pushes the active lighting preset into the rasterizer and
// the background color.
func (a *app) applyLighting() {
	if a.scene == nil {
		return
	}
	lit := a.scene.Lighting
	a.rasterizer.Ambient = lit.Ambient
	a.rasterizer.Key = lit.Key
	a.rasterizer.Exposure = lit.Exposure
	r, g, b := lit.Background.RGB255()
	a.background = render.RGB(r, g, b)
}

// surfacesFor converts model materials to drawable surfaces.
func surfacesFor(model *models.Model) []render.Surface {
	mesh := model.Mesh
	surfaces := make([]render.Surface, mesh.MaterialCount())
	for i := range surfaces {
		mat := mesh.GetMaterial(i)
		surfaces[i] = render.Surface{
			Color: render.RGBA(
				uint8(mat.BaseColor[0]*255),
				uint8(mat.BaseColor[1]*255),
				uint8(mat.BaseColor[2]*255),
				uint8(mat.BaseColor[3]*255),
			),
		}
		if mat.HasTexture {
			surfaces[i].Texture = render.TextureFromImage(mat.BaseMap)
		}
	}
	return surfaces
}

// screenshot saves the last rendered framebuffer.
func (a *app) screenshot() {
	name := fmt.Sprintf("plinth-%s.webp", time.Now().Format("20060102-150405"))
	if err := a.fb.SaveWebP(name); err != nil {
		a.status = err.Error()
		a.log.Error("screenshot failed", "error", err)
		return
	}
	a.status = "saved " + name
	a.log.Info("screenshot saved", "file", name)
}

// handleEvent processes one terminal event on the frame loop.
func (a *app) handleEvent(ev uv.Event) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		a.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape"), ev.MatchString("ctrl+c"), ev.MatchString("q"):
			a.quit = true
		case ev.MatchString("r"):
			a.reload()
		case ev.MatchString("x"):
			a.wireframe = !a.wireframe
		case ev.MatchString("c"):
			a.panel.ToggleCollapse()
		case ev.MatchString("tab"):
			a.panel.ToggleHidden()
		case ev.MatchString("p"):
			a.screenshot()
		case ev.MatchString("w", "up"):
			a.pitch.Velocity += 0.05
		case ev.MatchString("s", "down"):
			a.pitch.Velocity -= 0.05
		case ev.MatchString("a", "left"):
			a.yaw.Velocity -= 0.05
		case ev.MatchString("d", "right"):
			a.yaw.Velocity += 0.05
		}

	case uv.MouseClickEvent:
		if a.panel.MouseDown(ev.X, ev.Y) {
			return
		}
		a.orbiting = true
		a.lastMouseX, a.lastMouseY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		a.panel.MouseUp()
		a.orbiting = false

	case uv.MouseMotionEvent:
		if a.panel.Dragging() {
			a.panel.MouseMove(ev.X, ev.Y)
			return
		}
		if a.orbiting {
			dx := ev.X - a.lastMouseX
			dy := ev.Y - a.lastMouseY
			a.yaw.Velocity += float64(dx) * 0.01
			a.pitch.Velocity += float64(dy) * 0.01
			a.lastMouseX, a.lastMouseY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		step := a.camera.Distance * 0.1
		switch ev.Button {
		case uv.MouseWheelUp:
			a.camera.Dolly(-step)
		case uv.MouseWheelDown:
			a.camera.Dolly(step)
		}
	}
}

// drainEvents handles everything the terminal queued since last frame.
func (a *app) drainEvents() {
	for {
		select {
		case ev, ok := <-a.term.Events():
			if !ok {
				a.quit = true
				return
			}
			a.handleEvent(ev)
		default:
			return
		}
	}
}

// loop is the frame loop: events, session tick, render, flush.
func (a *app) loop(frame time.Duration) error {
	for !a.quit {
		start := time.Now()

		a.updateFPS()
		a.drainEvents()
		a.pollLoad()
		a.sess.Tick()

		a.camera.Orbit(a.yaw.Update(), a.pitch.Update())

		a.renderFrame()
		if err := a.termRenderer.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		if elapsed := time.Since(start); elapsed < frame {
			time.Sleep(frame - elapsed)
		}
	}
	return nil
}

// updateFPS refreshes the smoothed frame rate once per second.
func (a *app) updateFPS() {
	a.fpsFrames++
	elapsed := time.Since(a.fpsTime)
	if elapsed >= time.Second {
		a.fps = float64(a.fpsFrames) / elapsed.Seconds()
		a.fpsFrames = 0
		a.fpsTime = time.Now()
	}
}

var fallbackSurface = render.Surface{Color: render.RGB(200, 200, 200)}

// renderFrame draws the scene and the overlays into the terminal buffer.
func (a *app) renderFrame() {
	a.fb.Clear(a.background)
	a.rasterizer.ClearDepth()

	if a.scene != nil {
		mesh := a.scene.Model.Mesh
		lightDir := a.camera.Position().Sub(a.camera.Target).Normalize()

		if a.wireframe {
			a.rasterizer.DrawMeshWireframe(mesh, math3d.Identity(), render.RGB(0, 255, 128))
		} else {
			a.rasterizer.DrawMeshSurfaces(mesh, math3d.Identity(), a.surfaces, fallbackSurface, lightDir)
		}
	}

	a.termRenderer.Render(a.fb)
	a.panel.Draw(a.termRenderer.Screen())
	a.drawStatus()
}

// drawStatus writes the status line into the bottom row.
func (a *app) drawStatus() {
	text := a.status
	if a.sess.Loading() {
		text = "loading..."
	}

	scr := a.termRenderer.Screen()
	runes := []rune(" " + text)

	// Right-aligned FPS readout, overwriting the tail of a too-long status.
	fpsStr := []rune(fmt.Sprintf(" %.0f fps ", a.fps))
	fpsStart := a.width - len(fpsStr)

	y := a.height - 1
	for x := range a.width {
		content := " "
		if x < len(runes) {
			content = string(runes[x])
		}
		if x >= fpsStart && x-fpsStart < len(fpsStr) {
			content = string(fpsStr[x-fpsStart])
		}
		scr.SetCell(x, y, &uv.Cell{
			Content: content,
			Width:   1,
			Style: uv.Style{
				Fg: color.RGBA{200, 205, 215, 255},
				Bg: color.RGBA{16, 17, 22, 255},
			},
		})
	}
}
