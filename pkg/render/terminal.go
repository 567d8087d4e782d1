package render

import (
	"context"
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the internal framebuffer to terminal cells and draws them on
// the screen.
// The framebuffer height should be 2x the terminal height.
func (r *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	// Each terminal row represents 2 framebuffer rows
	// We use ▀ (upper half block) with fg=top color and bg=bottom color

	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < r.Width; col++ {
			topColor := r.GetPixel(col, topY)
			botColor := r.GetPixel(col, botY)

			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(topColor),
					Bg: rgbaToColor(botColor),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// rgbaToColor converts color.RGBA to Go's color.Color interface.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil // Transparent = no color
	}
	return c
}

// TerminalRenderer flushes framebuffers to a terminal.
type TerminalRenderer struct {
	term *uv.Terminal

	// Terminal dimensions in cells.
	Width  int
	Height int
}

// NewTerminalRenderer wraps an initialized terminal.
func NewTerminalRenderer(term *uv.Terminal, width, height int) *TerminalRenderer {
	return &TerminalRenderer{term: term, Width: width, Height: height}
}

// SetSize updates the cell dimensions after a resize event.
func (t *TerminalRenderer) SetSize(width, height int) {
	t.Width = width
	t.Height = height
	t.term.Resize(width, height)
}

// FramebufferSize returns the pixel dimensions matching the terminal:
// one column per pixel, two rows of pixels per cell row.
func (t *TerminalRenderer) FramebufferSize() (width, height int) {
	return t.Width, t.Height * 2
}

// Render draws a framebuffer over the whole terminal area.
func (t *TerminalRenderer) Render(fb *Framebuffer) {
	fb.Draw(t.term, uv.Rect(0, 0, t.Width, t.Height))
}

// Screen exposes the terminal as a cell screen for overlay widgets.
func (t *TerminalRenderer) Screen() uv.Screen {
	return t.term
}

// Flush presents the composed frame.
func (t *TerminalRenderer) Flush() error {
	return t.term.Display()
}

// Shutdown restores the terminal.
func (t *TerminalRenderer) Shutdown(ctx context.Context) error {
	return t.term.Shutdown(ctx)
}

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack = color.RGBA{0, 0, 0, 255}
	ColorWhite = color.RGBA{255, 255, 255, 255}
	ColorGray  = color.RGBA{128, 128, 128, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// RGBA creates a color from RGBA values.
func RGBA(r, g, b, a uint8) color.RGBA {
	return color.RGBA{r, g, b, a}
}
