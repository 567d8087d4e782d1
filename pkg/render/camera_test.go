package render

import (
	"math"
	"testing"

	"github.com/plinth3d/plinth/pkg/math3d"
)

func TestOrbitCameraDollyClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.SetDistanceLimits(2, 20)

	c.Dolly(-100)
	if c.Distance != 2 {
		t.Errorf("Distance after dolly in = %v, want 2", c.Distance)
	}

	c.Dolly(100)
	if c.Distance != 20 {
		t.Errorf("Distance after dolly out = %v, want 20", c.Distance)
	}
}

func TestOrbitCameraSetLimitsReclamps(t *testing.T) {
	c := NewOrbitCamera()
	c.SetDistance(50)
	c.SetDistanceLimits(1, 10)
	if c.Distance != 10 {
		t.Errorf("Distance after tightening limits = %v, want 10", c.Distance)
	}
}

func TestOrbitCameraPitchClamp(t *testing.T) {
	c := NewOrbitCamera()
	c.Orbit(0, 10)
	if c.Pitch >= math.Pi/2 {
		t.Errorf("Pitch = %v, want < pi/2", c.Pitch)
	}
	c.Orbit(0, -20)
	if c.Pitch <= -math.Pi/2 {
		t.Errorf("Pitch = %v, want > -pi/2", c.Pitch)
	}
}

func TestOrbitCameraLookFromRoundTrip(t *testing.T) {
	c := NewOrbitCamera()
	c.SetTarget(math3d.V3(1, 2, 3))
	c.SetDistanceLimits(0.1, 100)

	want := math3d.V3(4, 6, 3)
	c.LookFrom(want)

	got := c.Position()
	if got.Sub(want).Len() > 1e-9 {
		t.Errorf("Position() = %v, want %v", got, want)
	}
	if math.Abs(c.Distance-5) > 1e-9 {
		t.Errorf("Distance = %v, want 5", c.Distance)
	}
}

func TestOrbitCameraViewMatrixTracksChanges(t *testing.T) {
	c := NewOrbitCamera()
	c.SetTarget(math3d.Zero3())
	c.LookFrom(math3d.V3(0, 0, 10))

	before := c.ViewProjectionMatrix()
	c.Orbit(math.Pi/2, 0)
	after := c.ViewProjectionMatrix()

	if before == after {
		t.Error("view-projection matrix should change after an orbit")
	}
}

func TestOrbitCameraPositionOnSphere(t *testing.T) {
	c := NewOrbitCamera()
	c.SetTarget(math3d.V3(5, 5, 5))
	c.SetDistance(7)

	for _, yaw := range []float64{0, 1, 2, 3} {
		c.Orbit(yaw, 0.3)
		d := c.Position().Sub(c.Target).Len()
		if math.Abs(d-7) > 1e-9 {
			t.Errorf("distance to target = %v, want 7", d)
		}
	}
}
