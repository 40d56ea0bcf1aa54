package shape

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MeshFlags is the triangle-mesh pre-processing bitmask defined by the
// collision core. Unknown bits decode to the empty set.
type MeshFlags uint16

// Known mesh flags.
const (
	MeshHalfEdgeTopology MeshFlags = 1 << iota
	MeshConnectedComponents
	MeshDeleteBadTopologyTriangles
	MeshOriented
	MeshAppendDuplicateTriangles
	MeshDeleteDuplicateTriangles
	MeshDeleteDegenerateTriangles
	MeshFixInternalEdges

	meshFlagsAll = MeshFlags(1<<8) - 1
)

// DecodeMeshFlags validates a wire integer against the known flag bits,
// substituting the empty set for unknown combinations.
func DecodeMeshFlags(bits uint32) MeshFlags {
	if bits > uint32(meshFlagsAll) {
		return 0
	}
	return MeshFlags(bits)
}

// HeightFieldFlags is the height-field behavior bitmask defined by the
// collision core. Unknown bits decode to the empty set.
type HeightFieldFlags uint8

// Known height-field flags.
const (
	HeightFieldFixInternalEdges HeightFieldFlags = 1 << iota

	heightFieldFlagsAll = HeightFieldFlags(1<<1) - 1
)

// DecodeHeightFieldFlags validates a wire integer against the known flag
// bits, substituting the empty set for unknown combinations.
func DecodeHeightFieldFlags(bits uint32) HeightFieldFlags {
	if bits > uint32(heightFieldFlagsAll) {
		return 0
	}
	return HeightFieldFlags(bits)
}

// Polyline is a set of segments over a shared vertex buffer.
type Polyline struct {
	vertices []r3.Vector
	indices  [][2]uint32
}

// TriMesh is a set of triangles over a shared vertex buffer.
type TriMesh struct {
	vertices []r3.Vector
	indices  [][3]uint32
	flags    MeshFlags
}

// ConvexPolyhedron is a convex shape described by its extreme points. When
// built from an indexed mesh the triangulated faces are retained so they can
// be read back; hulls built from bare points carry no connectivity.
type ConvexPolyhedron struct {
	points []r3.Vector
	faces  [][3]uint32
}

// HeightField is a rectangular grid of heights, scaled into local space. The
// grid spans scale.X along X and scale.Z along Z, centered on the origin, and
// heights are multiplied by scale.Y.
type HeightField struct {
	heights []float64
	nrows   int
	ncols   int
	scale   r3.Vector
	flags   HeightFieldFlags
}

func (p *Polyline) Type() Type         { return TypePolyline }
func (m *TriMesh) Type() Type          { return TypeTriMesh }
func (c *ConvexPolyhedron) Type() Type { return TypeConvexPolyhedron }
func (h *HeightField) Type() Type      { return TypeHeightField }

func pointsFromFlat(vertices []float64) ([]r3.Vector, error) {
	if len(vertices)%PointStride != 0 {
		return nil, errors.Errorf("vertex buffer length %d is not a multiple of %d", len(vertices), PointStride)
	}
	points := make([]r3.Vector, 0, len(vertices)/PointStride)
	for i := 0; i+PointStride <= len(vertices); i += PointStride {
		points = append(points, r3.Vector{X: vertices[i], Y: vertices[i+1], Z: vertices[i+2]})
	}
	return points, nil
}

func flattenPoints(points []r3.Vector) []float64 {
	flat := make([]float64, 0, len(points)*PointStride)
	for _, pt := range points {
		flat = append(flat, pt.X, pt.Y, pt.Z)
	}
	return flat
}

// NewPolyline builds a polyline from a flat stride-3 vertex buffer and a flat
// per-segment index buffer. An empty index buffer means the vertices form one
// connected polyline in order.
func NewPolyline(vertices []float64, indices []uint32) (*Polyline, error) {
	points, err := pointsFromFlat(vertices)
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, errors.New("polyline needs at least two vertices")
	}
	var segs [][2]uint32
	if len(indices) == 0 {
		segs = make([][2]uint32, 0, len(points)-1)
		for i := 0; i+1 < len(points); i++ {
			segs = append(segs, [2]uint32{uint32(i), uint32(i + 1)})
		}
	} else {
		if len(indices)%2 != 0 {
			return nil, errors.New("polyline index buffer length must be a multiple of 2")
		}
		segs = make([][2]uint32, 0, len(indices)/2)
		for i := 0; i+1 < len(indices); i += 2 {
			if int(indices[i]) >= len(points) || int(indices[i+1]) >= len(points) {
				return nil, errors.Errorf("polyline index out of range: [%d %d]", indices[i], indices[i+1])
			}
			segs = append(segs, [2]uint32{indices[i], indices[i+1]})
		}
	}
	return &Polyline{vertices: points, indices: segs}, nil
}

// NewTriMesh builds a triangle mesh from a flat stride-3 vertex buffer and a
// flat per-triangle index buffer.
func NewTriMesh(vertices []float64, indices []uint32, flags MeshFlags) (*TriMesh, error) {
	points, err := pointsFromFlat(vertices)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, errors.New("trimesh index buffer length must be a nonzero multiple of 3")
	}
	tris := make([][3]uint32, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		for j := 0; j < 3; j++ {
			if int(indices[i+j]) >= len(points) {
				return nil, errors.Errorf("trimesh index out of range: %d", indices[i+j])
			}
		}
		tris = append(tris, [3]uint32{indices[i], indices[i+1], indices[i+2]})
	}
	return &TriMesh{vertices: points, indices: tris, flags: flags}, nil
}

// NewConvexHull treats the given flat point buffer as the extreme points of a
// convex shape. Hull computation itself belongs to the geometry kernel; the
// points are taken as already-reduced hull vertices.
func NewConvexHull(points []float64) (*ConvexPolyhedron, error) {
	pts, err := pointsFromFlat(points)
	if err != nil {
		return nil, err
	}
	if len(pts) < 3 {
		return nil, errors.New("convex hull needs at least three points")
	}
	return &ConvexPolyhedron{points: pts}, nil
}

// NewConvexMesh builds a convex polyhedron from an already-triangulated
// convex mesh, retaining the faces.
func NewConvexMesh(vertices []float64, indices []uint32) (*ConvexPolyhedron, error) {
	mesh, err := NewTriMesh(vertices, indices, 0)
	if err != nil {
		return nil, err
	}
	return &ConvexPolyhedron{points: mesh.vertices, faces: mesh.indices}, nil
}

// NewHeightField builds a height field with (nrows+1)*(ncols+1) height
// samples given in column-major order, matching the wire layout of the
// collision core.
func NewHeightField(nrows, ncols int, heights []float64, scale r3.Vector, flags HeightFieldFlags) (*HeightField, error) {
	if nrows < 1 || ncols < 1 {
		return nil, errors.New("heightfield needs at least one row and one column")
	}
	if len(heights) != (nrows+1)*(ncols+1) {
		return nil, errors.Errorf("heightfield needs %d height samples, got %d", (nrows+1)*(ncols+1), len(heights))
	}
	if scale.X < 0 || scale.Y < 0 || scale.Z < 0 {
		return nil, newBadDimensionsError(TypeHeightField)
	}
	dup := make([]float64, len(heights))
	copy(dup, heights)
	return &HeightField{heights: dup, nrows: nrows, ncols: ncols, scale: scale, flags: flags}, nil
}

// Points returns the vertex buffer of the polyline.
func (p *Polyline) Points() []r3.Vector { return p.vertices }

// Segments returns the per-segment vertex indices.
func (p *Polyline) Segments() [][2]uint32 { return p.indices }

// Points returns the vertex buffer of the mesh.
func (m *TriMesh) Points() []r3.Vector { return m.vertices }

// Triangles returns the per-triangle vertex indices.
func (m *TriMesh) Triangles() [][3]uint32 { return m.indices }

// Flags returns the mesh flags.
func (m *TriMesh) Flags() MeshFlags { return m.flags }

// Points returns the hull vertices.
func (c *ConvexPolyhedron) Points() []r3.Vector { return c.points }

// Faces returns the triangulated faces, or nil if the hull was built from
// bare points.
func (c *ConvexPolyhedron) Faces() [][3]uint32 { return c.faces }

// Heights returns the raw height samples in column-major order.
func (h *HeightField) Heights() []float64 { return h.heights }

// Scale returns the per-axis scale of the height field.
func (h *HeightField) Scale() r3.Vector { return h.scale }

// NRows returns the number of cell rows.
func (h *HeightField) NRows() int { return h.nrows }

// NCols returns the number of cell columns.
func (h *HeightField) NCols() int { return h.ncols }

// Flags returns the height-field flags.
func (h *HeightField) Flags() HeightFieldFlags { return h.flags }

// HeightAt returns the height sample for the given row and column of the
// sample lattice (0..nrows, 0..ncols).
func (h *HeightField) HeightAt(row, col int) float64 {
	return h.heights[col*(h.nrows+1)+row]
}

// CellTriangles returns the two triangles tiling the given cell, in the
// field's local frame.
func (h *HeightField) CellTriangles(row, col int) (Triangle, Triangle) {
	cellW := h.scale.X / float64(h.ncols)
	cellD := h.scale.Z / float64(h.nrows)
	x0 := -h.scale.X/2 + float64(col)*cellW
	z0 := -h.scale.Z/2 + float64(row)*cellD

	p00 := r3.Vector{X: x0, Y: h.HeightAt(row, col) * h.scale.Y, Z: z0}
	p01 := r3.Vector{X: x0 + cellW, Y: h.HeightAt(row, col+1) * h.scale.Y, Z: z0}
	p10 := r3.Vector{X: x0, Y: h.HeightAt(row+1, col) * h.scale.Y, Z: z0 + cellD}
	p11 := r3.Vector{X: x0 + cellW, Y: h.HeightAt(row+1, col+1) * h.scale.Y, Z: z0 + cellD}

	return Triangle{A: p00, B: p01, C: p10}, Triangle{A: p01, B: p11, C: p10}
}
