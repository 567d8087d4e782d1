package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPoint(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		want Point
	}{
		{"inside", Point{100, 100}, Point{100, 100}},
		{"off both edges", Point{-50, 900}, Point{8, 392}},
		{"past right", Point{5000, 50}, Point{372, 50}},
		{"at lower bound", Point{8, 8}, Point{8, 8}},
	}

	// Container 800x600, panel 420x200, margin 8.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampPoint(tt.in, 420, 200, 800, 600, 8)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClampPointTinyContainerLowerBoundWins(t *testing.T) {
	// Container smaller than panel + margins: both axes pin at margin.
	got := ClampPoint(Point{300, 300}, 420, 200, 100, 50, 8)
	assert.Equal(t, Point{8, 8}, got)
}

func newTestPanel() *Panel {
	p := New(2)
	p.SetContainer(120, 60)
	return p
}

func TestPanelDragCapture(t *testing.T) {
	p := newTestPanel()

	// Press on the title row captures and records the grab offset.
	assert.True(t, p.MouseDown(p.Pos.X+5, p.Pos.Y))
	assert.True(t, p.Dragging())

	p.MouseMove(50, 20)
	assert.Equal(t, Point{45, 20}, p.Pos)

	p.MouseUp()
	assert.False(t, p.Dragging())

	// Moves after release are ignored.
	before := p.Pos
	p.MouseMove(90, 40)
	assert.Equal(t, before, p.Pos)
}

func TestPanelDragClamps(t *testing.T) {
	p := newTestPanel()

	assert.True(t, p.MouseDown(p.Pos.X, p.Pos.Y))
	p.MouseMove(-100, -100)
	assert.Equal(t, Point{2, 2}, p.Pos)

	p.MouseMove(1000, 1000)
	assert.Equal(t, 120-p.Width-2, p.Pos.X)
	assert.Equal(t, 60-p.Height()-2, p.Pos.Y)
}

func TestPanelBodyPressConsumedWithoutDrag(t *testing.T) {
	p := newTestPanel()

	// Inside the body: consumed so the orbit camera does not react, but no
	// drag starts.
	assert.True(t, p.MouseDown(p.Pos.X+1, p.Pos.Y+2))
	assert.False(t, p.Dragging())

	// Outside the panel entirely: not consumed.
	assert.False(t, p.MouseDown(100, 50))
}

func TestPanelCollapseKeepsHandleDraggable(t *testing.T) {
	p := newTestPanel()
	expanded := p.Height()

	p.ToggleCollapse()
	assert.Equal(t, 1, p.Height())
	assert.True(t, p.MouseDown(p.Pos.X, p.Pos.Y))
	assert.True(t, p.Dragging())
	p.MouseUp()

	p.ToggleCollapse()
	assert.Equal(t, expanded, p.Height())
}

func TestPanelHiddenIgnoresPointer(t *testing.T) {
	p := newTestPanel()
	p.ToggleHidden()

	assert.False(t, p.Contains(p.Pos.X, p.Pos.Y))
	assert.False(t, p.MouseDown(p.Pos.X, p.Pos.Y))
}

func TestPanelHeightTracksExtensions(t *testing.T) {
	p := newTestPanel()
	base := p.Height()

	p.SetExtensions([]string{"KHR_draco_mesh_compression", "KHR_materials_unlit"}, []string{"KHR_texture_basisu"})
	assert.Equal(t, base+1, p.Height())
}
