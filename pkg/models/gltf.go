package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"math"
	"net/url"
	"strings"

	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/webp"

	"github.com/plinth3d/plinth/pkg/math3d"
)

// Model is a decoded scene: the triangle mesh plus the document metadata the
// viewer surfaces.
type Model struct {
	Mesh *Mesh

	// Extension declarations copied verbatim from the document, with
	// blank entries dropped; never nil.
	ExtensionsRequired []string
	ExtensionsUsed     []string
}

// Release disposes the model's geometry and texture references.
func (m *Model) Release() {
	if m.Mesh != nil {
		m.Mesh.Release()
	}
}

// Loader decodes glTF/GLB documents from memory. External buffers and
// texture images referenced by URI are opened through Fsys, which is how the
// resolver intercepts and rewrites them; a nil Fsys fails every external
// reference.
type Loader struct {
	Fsys fs.FS

	// Options
	CalculateNormals bool
	SmoothNormals    bool
}

// NewLoader creates a loader with default options.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		Fsys:             fsys,
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// Decode parses a glTF or GLB payload and returns the Model. name is used
// for the mesh label only.
func (l *Loader) Decode(name string, data []byte) (*Model, error) {
	fsys := l.fsys()

	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}

	mesh := NewMesh(name)
	mesh.Materials = extractMaterials(doc, fsys)

	for _, m := range doc.Meshes {
		if err := processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return &Model{
		Mesh:               mesh,
		ExtensionsRequired: cleanExtensions(doc.ExtensionsRequired),
		ExtensionsUsed:     cleanExtensions(doc.ExtensionsUsed),
	}, nil
}

func (l *Loader) fsys() fs.FS {
	if l.Fsys != nil {
		return l.Fsys
	}
	return emptyFS{}
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// cleanExtensions copies the declared extension names, dropping blank
// entries. The document decodes them typed, so this is only hygiene.
func cleanExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractMaterials converts document materials, resolving base color
// textures from buffer views, data URIs, or external files via fsys.
func extractMaterials(doc *gltf.Document, fsys fs.FS) []Material {
	if len(doc.Materials) == 0 {
		return nil
	}
	out := make([]Material, 0, len(doc.Materials))
	for _, src := range doc.Materials {
		mat := Material{
			Name:      src.Name,
			Kind:      MaterialUntyped,
			BaseColor: [4]float64{1, 1, 1, 1},
			Metallic:  1,
			Roughness: 1,
		}
		if pbr := src.PBRMetallicRoughness; pbr != nil {
			mat.Kind = MaterialPBR
			if pbr.BaseColorFactor != nil {
				for i, f := range pbr.BaseColorFactor {
					mat.BaseColor[i] = float64(f)
				}
			}
			if pbr.MetallicFactor != nil {
				mat.Metallic = float64(*pbr.MetallicFactor)
			}
			if pbr.RoughnessFactor != nil {
				mat.Roughness = float64(*pbr.RoughnessFactor)
			}
			if pbr.BaseColorTexture != nil {
				if img := loadTextureImage(doc, int(pbr.BaseColorTexture.Index), fsys); img != nil {
					mat.BaseMap = img
					mat.HasTexture = true
				}
			}
		}
		out = append(out, mat)
	}
	return out
}

// loadTextureImage pulls the image behind texture index ti. A missing or
// undecodable texture is not an error; the material just has no map.
func loadTextureImage(doc *gltf.Document, ti int, fsys fs.FS) image.Image {
	if ti < 0 || ti >= len(doc.Textures) {
		return nil
	}
	tex := doc.Textures[ti]
	if tex.Source == nil {
		return nil
	}
	si := int(*tex.Source)
	if si < 0 || si >= len(doc.Images) {
		return nil
	}
	img := doc.Images[si]

	var payload []byte
	switch {
	case img.BufferView != nil:
		bvi := *img.BufferView
		if bvi < 0 || bvi >= len(doc.BufferViews) {
			return nil
		}
		bv := doc.BufferViews[bvi]
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return nil
		}
		buf := doc.Buffers[bv.Buffer]
		if buf.Data != nil {
			start := bv.ByteOffset
			end := start + bv.ByteLength
			if start >= 0 && start <= end && end <= len(buf.Data) {
				payload = buf.Data[start:end]
			}
		}
	case strings.HasPrefix(img.URI, "data:"):
		payload = decodeDataURI(img.URI)
	case img.URI != "":
		f, err := fsys.Open(img.URI)
		if err != nil {
			return nil
		}
		payload, _ = io.ReadAll(f)
		f.Close()
	}
	if len(payload) == 0 {
		return nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	return decoded
}

// decodeDataURI extracts the payload of an embedded data URI.
func decodeDataURI(uri string) []byte {
	i := strings.IndexByte(uri, ',')
	if i < 0 {
		return nil
	}
	meta, payload := uri[:i], uri[i+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil
		}
		return data
	}
	if s, err := url.QueryUnescape(payload); err == nil {
		return []byte(s)
	}
	return []byte(payload)
}

// processMesh extracts geometry from a document mesh.
func processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(doc, uvIdx)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		matIdx := -1
		if prim.Material != nil {
			matIdx = int(*prim.Material)
		}

		baseVertex := len(mesh.Vertices)

		for i := range positions {
			v := MeshVertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				// glTF uses top-left origin (V=0 at top), flip V
				// for bottom-left origin.
				v.UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		// glTF uses CCW winding for front-facing, but the rasterizer
		// uses CW (due to Y-flip in screen space), so reverse the
		// winding here.
		if prim.Indices != nil {
			indices, err := readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for _, idx := range indices {
				if idx >= len(positions) {
					return fmt.Errorf("face index %d out of range for %d vertices", idx, len(positions))
				}
			}
			for i := 0; i+2 < len(indices); i += 3 {
				mesh.Faces = append(mesh.Faces, Face{
					V: [3]int{
						baseVertex + indices[i],
						baseVertex + indices[i+2], // swapped
						baseVertex + indices[i+1], // swapped
					},
					Material: matIdx,
				})
			}
		} else {
			for i := 0; i+2 < len(positions); i += 3 {
				mesh.Faces = append(mesh.Faces, Face{
					V: [3]int{
						baseVertex + i,
						baseVertex + i + 2, // swapped
						baseVertex + i + 1, // swapped
					},
					Material: matIdx,
				})
			}
		}
	}

	return nil
}

// readVec3Accessor reads Vec3 data from an accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}

	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from an accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}

	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return result, nil
}

// readIndices reads index data from an accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case []uint8:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint16:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint32:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

// readAccessorData reads raw data from an accessor. Buffer contents are
// already present at this point: embedded GLB chunks and external buffers
// alike were materialized by the decoder (the latter through the Fsys hook).
func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}
	if *accessor.BufferView < 0 || *accessor.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("accessor buffer view %d out of range", *accessor.BufferView)
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.Buffer < 0 || bufferView.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer view references buffer %d out of range", bufferView.Buffer)
	}
	buffer := doc.Buffers[bufferView.Buffer]

	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer %d has no data", bufferView.Buffer)
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	count := accessor.Count

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12 // 3 floats * 4 bytes
		}
		if err := checkAccessorRange(bufData, start, stride, count, 12); err != nil {
			return nil, err
		}
		result := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8 // 2 floats * 4 bytes
		}
		if err := checkAccessorRange(bufData, start, stride, count, 8); err != nil {
			return nil, err
		}
		result := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorScalar:
		var elem int
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			elem = 1
		case gltf.ComponentUshort:
			elem = 2
		case gltf.ComponentUint:
			elem = 4
		}
		if stride == 0 {
			stride = elem
		}
		if elem > 0 {
			if err := checkAccessorRange(bufData, start, stride, count, elem); err != nil {
				return nil, err
			}
		}

		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result := make([]uint8, count)
			for i := range count {
				result[i] = bufData[start+i*stride]
			}
			return result, nil
		case gltf.ComponentUshort:
			result := make([]uint16, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
			}
			return result, nil
		case gltf.ComponentUint:
			result := make([]uint32, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint32(bufData[offset]) |
					uint32(bufData[offset+1])<<8 |
					uint32(bufData[offset+2])<<16 |
					uint32(bufData[offset+3])<<24
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

// checkAccessorRange verifies that count elements of elemSize bytes, laid
// out stride bytes apart from start, all fall inside buf. A declared count
// that overruns the buffer must surface as a load error, not a panic.
func checkAccessorRange(buf []byte, start, stride, count, elemSize int) error {
	if count == 0 {
		return nil
	}
	if start < 0 || stride < 0 || count < 0 {
		return fmt.Errorf("accessor layout invalid: offset %d, stride %d, count %d", start, stride, count)
	}
	if end := start + (count-1)*stride + elemSize; end > len(buf) {
		return fmt.Errorf("accessor overruns buffer: needs %d bytes, buffer has %d", end, len(buf))
	}
	return nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
