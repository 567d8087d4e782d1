package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plinth3d/plinth/pkg/math3d"
)

func TestFrameUnitishBox(t *testing.T) {
	bounds := math3d.Box3{
		Min: math3d.V3(-1, -1, -1),
		Max: math3d.V3(1, 1, 1),
	}

	f := Frame(bounds, 55, DefaultOblique())

	// extent 2 at 55 degrees vertical FOV.
	want := 2 / (2 * math.Tan(55*math.Pi/360))
	assert.InDelta(t, 1.921, want, 0.001)
	assert.InDelta(t, want, f.Distance, 1e-9)

	assert.Equal(t, math3d.Zero3(), f.Center)
	assert.InDelta(t, f.Distance, f.Position.Sub(f.Center).Len(), 1e-9)

	assert.InDelta(t, 0.3842, f.MinDistance, 0.001)
	assert.InDelta(t, 15.37, f.MaxDistance, 0.01)

	// Small model: both planes hit their floors.
	assert.InDelta(t, minNearPlane, f.Near, 1e-9)
	assert.InDelta(t, minFarPlane, f.Far, 1e-9)
}

func TestFrameLargeModelScalesPlanes(t *testing.T) {
	bounds := math3d.Box3{
		Min: math3d.V3(-500, 0, -500),
		Max: math3d.V3(500, 300, 500),
	}

	f := Frame(bounds, 55, DefaultOblique())

	assert.Greater(t, f.Near, minNearPlane)
	assert.InDelta(t, f.Distance/120, f.Near, 1e-9)
	assert.InDelta(t, f.Distance*120, f.Far, 1e-6)
	assert.Equal(t, math3d.V3(0, 150, 0), f.Center)
}

func TestFrameDegenerateBox(t *testing.T) {
	for _, bounds := range []math3d.Box3{
		math3d.NewBox3(), // empty
		{Min: math3d.V3(3, 3, 3), Max: math3d.V3(3, 3, 3)}, // a point
	} {
		f := Frame(bounds, 55, DefaultOblique())
		want := 1 / (2 * math.Tan(55*math.Pi/360))
		assert.InDelta(t, want, f.Distance, 1e-9)
		assert.Greater(t, f.Distance, 0.0)
	}
}
