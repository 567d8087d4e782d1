package math3d

// Box3 is an axis-aligned bounding box.
type Box3 struct {
	Min, Max Vec3
}

// NewBox3 returns an empty box positioned at the origin.
func NewBox3() Box3 {
	return Box3{}
}

// Expand grows the box to include p.
func (b Box3) Expand(p Vec3) Box3 {
	return Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the box center.
func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box dimensions.
func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest dimension across the three axes.
func (b Box3) MaxExtent() float64 {
	s := b.Size()
	e := s.X
	if s.Y > e {
		e = s.Y
	}
	if s.Z > e {
		e = s.Z
	}
	return e
}

// IsDegenerate reports whether the box has no volume in every axis.
func (b Box3) IsDegenerate() bool {
	return b.MaxExtent() <= 0
}
