// Package view derives per-model camera framing and scene lighting from a
// freshly loaded mesh. Both run exactly once per successful load, before the
// first frame of the new model is drawn.
package view

import (
	"math"

	"github.com/plinth3d/plinth/pkg/math3d"
)

// Clipping plane floors. Distances below these produce z-fighting on tiny
// models and a useless far plane on big ones.
const (
	minNearPlane = 0.01
	minFarPlane  = 100.0
)

// Zoom limits relative to the framing distance.
const (
	minZoomFactor = 0.2
	maxZoomFactor = 8.0
)

// DefaultOblique is the camera offset direction for the initial
// three-quarter view: right of, above, and in front of the model.
func DefaultOblique() math3d.Vec3 {
	return math3d.V3(1, 0.75, 1.75).Normalize()
}

// Framing holds everything the camera needs to show a whole model: where to
// stand, what to clip, and how far interactive zoom may stray.
type Framing struct {
	Center   math3d.Vec3 // model center; the camera target after recentering
	Distance float64     // camera-to-target distance fitting the model

	Position math3d.Vec3 // Center + oblique*Distance

	Near float64
	Far  float64

	MinDistance float64 // closest the user may dolly in
	MaxDistance float64 // farthest the user may dolly out
}

// Frame computes camera framing for a model bounding box. fovDegrees is the
// vertical field of view; oblique is the unit offset direction for the
// initial viewpoint.
//
// A degenerate box (empty mesh, a single point, all faces coplanar to a
// point) is not an error: the extent falls back to 1 so the distance stays
// finite and nonzero.
func Frame(bounds math3d.Box3, fovDegrees float64, oblique math3d.Vec3) Framing {
	extent := bounds.MaxExtent()
	if extent <= 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = 1
	}

	// Pinhole trigonometry: the extent subtends the vertical FOV exactly
	// when the camera stands extent/(2*tan(fov/2)) away.
	halfFOV := fovDegrees * math.Pi / 180 / 2
	distance := extent / (2 * math.Tan(halfFOV))

	center := bounds.Center()
	return Framing{
		Center:      center,
		Distance:    distance,
		Position:    center.Add(oblique.Scale(distance)),
		Near:        math.Max(distance/120, minNearPlane),
		Far:         math.Max(distance*120, minFarPlane),
		MinDistance: distance * minZoomFactor,
		MaxDistance: distance * maxZoomFactor,
	}
}
