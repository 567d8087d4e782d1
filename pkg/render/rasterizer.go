// Package render provides software rasterization for Plinth.
package render

import (
	"math"

	"github.com/plinth3d/plinth/pkg/math3d"
)

// Vertex represents a vertex with all attributes needed for rasterization.
type Vertex struct {
	Position math3d.Vec3 // World position
	Normal   math3d.Vec3 // Normal vector (for lighting)
	UV       math3d.Vec2 // Texture coordinates
	Color    Color       // Vertex color
}

// Triangle represents a triangle to be rasterized.
type Triangle struct {
	V [3]Vertex
}

// Surface is the per-material appearance a mesh face is drawn with.
// Texture is nil for untextured surfaces.
type Surface struct {
	Color   Color
	Texture *Texture
}

// MeshSource exposes mesh geometry without importing the models package.
type MeshSource interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
	GetFaceMaterial(i int) int
}

// Rasterizer handles software triangle rasterization.
type Rasterizer struct {
	camera  *OrbitCamera
	fb      *Framebuffer
	zbuffer []float64 // Depth buffer (1D array, row-major)

	// Lighting parameters, set per load cycle by the lighting heuristic.
	Ambient  float64 // fill term, applied regardless of facing
	Key      float64 // directional term, scaled by N·L
	Exposure float64 // final intensity multiplier
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *OrbitCamera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{
		camera:   camera,
		fb:       fb,
		Ambient:  0.3,
		Key:      0.7,
		Exposure: 1.0,
	}
	r.Resize()
	return r
}

// Resize resizes the rasterizer's buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// getDepth returns the depth at (x, y).
func (r *Rasterizer) getDepth(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

// setDepth sets the depth at (x, y).
func (r *Rasterizer) setDepth(x, y int, z float64) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return
	}
	r.zbuffer[y*r.Width()+x] = z
}

// shade computes the lighting intensity for a surface normal.
func (r *Rasterizer) shade(normal, lightDir math3d.Vec3) float64 {
	diffuse := math.Max(0, normal.Dot(lightDir))
	return (r.Ambient + r.Key*diffuse) * r.Exposure
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y  float64 // Screen coordinates
	Z     float64 // Depth (for Z-buffer)
	W     float64 // W coordinate (for perspective-correct interpolation)
	Color Color
	UV    math3d.Vec2
}

// toScreen transforms a world position to screen space. allBehind tracking
// is left to the caller via the returned W.
func (r *Rasterizer) toScreen(pos math3d.Vec3) screenVertex {
	clipPos := r.camera.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(pos, 1))

	ndc := clipPos.PerspectiveDivide()

	var sv screenVertex
	sv.X, sv.Y, sv.Z = ndc.X, ndc.Y, ndc.Z
	sv.W = clipPos.W

	// NDC to screen coordinates, Y flipped
	sv.X = (sv.X + 1) * 0.5 * float64(r.Width())
	sv.Y = (1 - sv.Y) * 0.5 * float64(r.Height())
	return sv
}

// DrawTriangleGouraud rasterizes a triangle with Gouraud shading
// (per-vertex lighting). Lighting is calculated at each vertex and
// interpolated across the triangle.
func (r *Rasterizer) DrawTriangleGouraud(tri Triangle, lightDir math3d.Vec3) {
	var sv [3]screenVertex
	allBehind := true

	normLight := lightDir.Normalize()

	for i := range 3 {
		sv[i] = r.toScreen(tri.V[i].Position)
		if sv[i].W > 0 {
			allBehind = false
		}

		// Apply per-vertex lighting to the vertex color
		intensity := r.shade(tri.V[i].Normal, normLight)
		sv[i].Color = MultiplyColor(tri.V[i].Color, intensity)
	}

	// Skip if entirely behind camera
	if allBehind {
		return
	}

	// Backface culling (using screen-space winding)
	edge1 := math3d.V2(sv[1].X-sv[0].X, sv[1].Y-sv[0].Y)
	edge2 := math3d.V2(sv[2].X-sv[0].X, sv[2].Y-sv[0].Y)
	cross := edge1.X*edge2.Y - edge1.Y*edge2.X
	if cross < 0 {
		return // Back-facing
	}

	// Find bounding box
	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	// Rasterize using barycentric coordinates
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			bc := barycentric(
				sv[0].X, sv[0].Y,
				sv[1].X, sv[1].Y,
				sv[2].X, sv[2].Y,
				px, py,
			)

			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			// Interpolate depth
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z

			if z >= r.getDepth(x, y) {
				continue
			}

			// Interpolate lit vertex colors (Gouraud shading)
			color := interpolateColor3(sv[0].Color, sv[1].Color, sv[2].Color, bc)

			r.setDepth(x, y, z)
			r.fb.SetPixel(x, y, color)
		}
	}
}

// DrawTriangleTexturedGouraud rasterizes a textured triangle with Gouraud
// shading. Per-vertex lighting is interpolated perspective-correctly, then
// modulated with the texture sample and the vertex color.
func (r *Rasterizer) DrawTriangleTexturedGouraud(tri Triangle, tex *Texture, lightDir math3d.Vec3) {
	var sv [3]screenVertex
	var vertexIntensity [3]float64
	allBehind := true

	normLight := lightDir.Normalize()

	for i := range 3 {
		sv[i] = r.toScreen(tri.V[i].Position)
		if sv[i].W > 0 {
			allBehind = false
		}

		vertexIntensity[i] = r.shade(tri.V[i].Normal, normLight)
		sv[i].Color = tri.V[i].Color
		sv[i].UV = tri.V[i].UV
	}

	// Skip if entirely behind camera
	if allBehind {
		return
	}

	// Backface culling (using screen-space winding)
	edge1 := math3d.V2(sv[1].X-sv[0].X, sv[1].Y-sv[0].Y)
	edge2 := math3d.V2(sv[2].X-sv[0].X, sv[2].Y-sv[0].Y)
	cross := edge1.X*edge2.Y - edge1.Y*edge2.X
	if cross < 0 {
		return // Back-facing
	}

	// Find bounding box
	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	// Precompute perspective-correct interpolation factors (1/w per vertex)
	var invW [3]float64
	for i := range 3 {
		if sv[i].W != 0 {
			invW[i] = 1.0 / sv[i].W
		}
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			bc := barycentric(
				sv[0].X, sv[0].Y,
				sv[1].X, sv[1].Y,
				sv[2].X, sv[2].Y,
				px, py,
			)

			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			// Interpolate depth
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z

			if z >= r.getDepth(x, y) {
				continue
			}

			// Perspective-correct interpolation
			w0, w1, w2 := bc.X*invW[0], bc.Y*invW[1], bc.Z*invW[2]
			oneOverW := w0 + w1 + w2
			if oneOverW == 0 {
				continue
			}

			u := (w0*sv[0].UV.X + w1*sv[1].UV.X + w2*sv[2].UV.X) / oneOverW
			v := (w0*sv[0].UV.Y + w1*sv[1].UV.Y + w2*sv[2].UV.Y) / oneOverW
			intensity := (w0*vertexIntensity[0] + w1*vertexIntensity[1] + w2*vertexIntensity[2]) / oneOverW

			// Texture modulated by the surface base color, then lit
			texColor := ModulateColor(tex.Sample(u, v), sv[0].Color)
			litColor := MultiplyColor(texColor, intensity)

			r.setDepth(x, y, z)
			r.fb.SetPixel(x, y, litColor)
		}
	}
}

// barycentric computes barycentric coordinates of point (px, py) in the
// triangle (x0,y0)-(x1,y1)-(x2,y2).
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	d := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if d == 0 {
		return math3d.V3(-1, -1, -1) // Degenerate triangle
	}

	a := ((y1-y2)*(px-x2) + (x2-x1)*(py-y2)) / d
	b := ((y2-y0)*(px-x2) + (x0-x2)*(py-y2)) / d
	c := 1 - a - b

	return math3d.V3(a, b, c)
}

// interpolateColor3 interpolates three colors by barycentric weights.
func interpolateColor3(c0, c1, c2 Color, bc math3d.Vec3) Color {
	return Color{
		R: uint8(bc.X*float64(c0.R) + bc.Y*float64(c1.R) + bc.Z*float64(c2.R)),
		G: uint8(bc.X*float64(c0.G) + bc.Y*float64(c1.G) + bc.Z*float64(c2.G)),
		B: uint8(bc.X*float64(c0.B) + bc.Y*float64(c1.B) + bc.Z*float64(c2.B)),
		A: 255,
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

// DrawMeshSurfaces renders a mesh with per-face surfaces. surfaces is
// indexed by the face's material index; fallback covers faces with no
// material or an out-of-range index.
func (r *Rasterizer) DrawMeshSurfaces(mesh MeshSource, transform math3d.Mat4, surfaces []Surface, fallback Surface, lightDir math3d.Vec3) {
	for i := 0; i < mesh.TriangleCount(); i++ {
		face := mesh.GetFace(i)

		var tri Triangle
		for j := range 3 {
			pos, normal, uvc := mesh.GetVertex(face[j])
			tri.V[j] = Vertex{
				Position: transform.MulVec3(pos),
				Normal:   transform.MulVec3Dir(normal).Normalize(),
				UV:       uvc,
			}
		}

		surf := fallback
		if mi := mesh.GetFaceMaterial(i); mi >= 0 && mi < len(surfaces) {
			surf = surfaces[mi]
		}

		if surf.Texture != nil {
			for j := range 3 {
				tri.V[j].Color = surf.Color
			}
			r.DrawTriangleTexturedGouraud(tri, surf.Texture, lightDir)
		} else {
			for j := range 3 {
				tri.V[j].Color = surf.Color
			}
			r.DrawTriangleGouraud(tri, lightDir)
		}
	}
}

// DrawMeshGouraud renders a whole mesh in a single color with Gouraud
// shading.
func (r *Rasterizer) DrawMeshGouraud(mesh MeshSource, transform math3d.Mat4, color Color, lightDir math3d.Vec3) {
	r.DrawMeshSurfaces(mesh, transform, nil, Surface{Color: color}, lightDir)
}

// DrawMeshWireframe renders a mesh as wireframe.
func (r *Rasterizer) DrawMeshWireframe(mesh MeshSource, transform math3d.Mat4, color Color) {
	for i := 0; i < mesh.TriangleCount(); i++ {
		face := mesh.GetFace(i)

		p0, _, _ := mesh.GetVertex(face[0])
		p1, _, _ := mesh.GetVertex(face[1])
		p2, _, _ := mesh.GetVertex(face[2])

		v0 := transform.MulVec3(p0)
		v1 := transform.MulVec3(p1)
		v2 := transform.MulVec3(p2)

		r.drawLine3D(v0, v1, color)
		r.drawLine3D(v1, v2, color)
		r.drawLine3D(v2, v0, color)
	}
}

// drawLine3D draws a 3D line (projected to screen).
func (r *Rasterizer) drawLine3D(a, b math3d.Vec3, color Color) {
	viewProj := r.camera.ViewProjectionMatrix()

	clipA := viewProj.MulVec4(math3d.V4FromV3(a, 1))
	clipB := viewProj.MulVec4(math3d.V4FromV3(b, 1))

	// Skip if both behind camera
	if clipA.W <= 0 && clipB.W <= 0 {
		return
	}

	if clipA.W > 0 {
		clipA.X /= clipA.W
		clipA.Y /= clipA.W
	}
	if clipB.W > 0 {
		clipB.X /= clipB.W
		clipB.Y /= clipB.W
	}

	x0 := int((clipA.X + 1) * 0.5 * float64(r.Width()))
	y0 := int((1 - clipA.Y) * 0.5 * float64(r.Height()))
	x1 := int((clipB.X + 1) * 0.5 * float64(r.Width()))
	y1 := int((1 - clipB.Y) * 0.5 * float64(r.Height()))

	r.fb.DrawLine(x0, y0, x1, y1, color)
}
