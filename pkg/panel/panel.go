// Package panel implements the floating extensions panel: a draggable,
// collapsible overlay listing the extension declarations of the loaded
// model. Positions are in terminal cells.
package panel

import (
	"fmt"
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Point is a cell-space position.
type Point struct {
	X, Y int
}

// ClampPoint clamps a raw panel origin into
// [margin, container - panel - margin] on both axes. When the container is
// too small for the panel plus margins the lower bound wins and the panel
// pins at margin.
func ClampPoint(p Point, panelW, panelH, containerW, containerH, margin int) Point {
	clampAxis := func(v, panel, container int) int {
		hi := container - panel - margin
		if v > hi {
			v = hi
		}
		if v < margin {
			v = margin
		}
		return v
	}
	return Point{
		X: clampAxis(p.X, panelW, containerW),
		Y: clampAxis(p.Y, panelH, containerH),
	}
}

// Panel is the extensions overlay. All mutation happens on the event loop;
// no locking.
type Panel struct {
	Pos       Point
	Width     int
	Margin    int
	Collapsed bool
	Hidden    bool

	required []string
	used     []string

	container  Point
	needsClamp bool

	// Drag capture state
	dragging   bool
	grabOffset Point
}

// New creates a panel pinned at the margin of an initially unknown
// container.
func New(margin int) *Panel {
	return &Panel{
		Pos:        Point{X: margin, Y: margin},
		Width:      34,
		Margin:     margin,
		needsClamp: true,
	}
}

// SetExtensions replaces the displayed extension lists. Nil slices render
// as "none".
func (p *Panel) SetExtensions(required, used []string) {
	p.required = required
	p.used = used
	p.needsClamp = true
}

// SetContainer records a new container size. Re-clamping is deferred to the
// next draw.
func (p *Panel) SetContainer(width, height int) {
	p.container = Point{X: width, Y: height}
	p.needsClamp = true
}

// ToggleCollapse hides or shows the body. The title row stays draggable
// either way.
func (p *Panel) ToggleCollapse() {
	p.Collapsed = !p.Collapsed
	p.needsClamp = true
}

// ToggleHidden hides the whole panel. A hidden panel neither draws nor
// captures the pointer.
func (p *Panel) ToggleHidden() {
	p.Hidden = !p.Hidden
}

// Height returns the panel's current height in cells.
func (p *Panel) Height() int {
	if p.Collapsed {
		return 1
	}
	// title + both section headers + entries (or "none" lines)
	h := 3
	h += max(len(p.required), 1)
	h += max(len(p.used), 1)
	return h
}

// Contains reports whether the cell (x, y) falls inside the panel.
func (p *Panel) Contains(x, y int) bool {
	if p.Hidden {
		return false
	}
	return x >= p.Pos.X && x < p.Pos.X+p.Width &&
		y >= p.Pos.Y && y < p.Pos.Y+p.Height()
}

// MouseDown starts a drag when the press lands on the title row. Returns
// whether the panel captured the pointer.
func (p *Panel) MouseDown(x, y int) bool {
	if p.Hidden {
		return false
	}
	if y != p.Pos.Y || x < p.Pos.X || x >= p.Pos.X+p.Width {
		// Presses on the body are consumed but do not drag.
		return p.Contains(x, y)
	}
	p.dragging = true
	p.grabOffset = Point{X: x - p.Pos.X, Y: y - p.Pos.Y}
	return true
}

// MouseMove updates the position while captured: pointer minus the recorded
// grab offset, clamped immediately.
func (p *Panel) MouseMove(x, y int) {
	if !p.dragging {
		return
	}
	raw := Point{X: x - p.grabOffset.X, Y: y - p.grabOffset.Y}
	p.Pos = ClampPoint(raw, p.Width, p.Height(), p.container.X, p.container.Y, p.Margin)
}

// MouseUp releases the capture.
func (p *Panel) MouseUp() {
	p.dragging = false
}

// Dragging reports whether the panel currently holds the pointer capture.
func (p *Panel) Dragging() bool {
	return p.dragging
}

// Panel palette.
var (
	panelBg    = color.RGBA{24, 26, 32, 255}
	panelTitle = color.RGBA{230, 230, 235, 255}
	panelText  = color.RGBA{180, 185, 195, 255}
	panelDim   = color.RGBA{120, 124, 134, 255}
	panelWarn  = color.RGBA{235, 180, 90, 255}
)

// Draw renders the panel onto the screen, applying any deferred re-clamp
// first.
func (p *Panel) Draw(scr uv.Screen) {
	if p.Hidden {
		return
	}
	if p.needsClamp {
		p.Pos = ClampPoint(p.Pos, p.Width, p.Height(), p.container.X, p.container.Y, p.Margin)
		p.needsClamp = false
	}

	y := p.Pos.Y
	marker := "▾"
	if p.Collapsed {
		marker = "▸"
	}
	p.drawLine(scr, y, fmt.Sprintf(" %s extensions", marker), panelTitle)
	if p.Collapsed {
		return
	}
	y++

	y = p.drawSection(scr, y, "required:", p.required, panelWarn)
	p.drawSection(scr, y, "used:", p.used, panelText)
}

func (p *Panel) drawSection(scr uv.Screen, y int, header string, names []string, fg color.RGBA) int {
	p.drawLine(scr, y, " "+header, panelDim)
	y++
	if len(names) == 0 {
		p.drawLine(scr, y, "   none", panelDim)
		return y + 1
	}
	for _, name := range names {
		p.drawLine(scr, y, "   "+name, fg)
		y++
	}
	return y
}

// drawLine fills one panel row with text, padded to the panel width.
func (p *Panel) drawLine(scr uv.Screen, y int, text string, fg color.RGBA) {
	runes := []rune(text)
	for i := range p.Width {
		content := " "
		if i < len(runes) {
			content = string(runes[i])
		}
		scr.SetCell(p.Pos.X+i, y, &uv.Cell{
			Content: content,
			Width:   1,
			Style:   uv.Style{Fg: fg, Bg: panelBg},
		})
	}
}
