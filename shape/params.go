package shape

import (
	"math"

	"github.com/golang/geo/r3"
)

// Parameter accessors over the shape catalog. Getters return (zero, false)
// when the kind does not define the parameter; setters silently do nothing.
// Rounded kinds forward inner parameters to their inner shape, so e.g.
// SetRadius on a round cylinder reaches the cylinder's radius while
// SetRoundRadius touches only the border.

func clampDim(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// Radius returns the radius of a ball, capsule, cylinder, rounded cylinder,
// or cone.
func Radius(s Shape) (float64, bool) {
	switch sh := s.(type) {
	case *Ball:
		return sh.Radius, true
	case *Capsule:
		return sh.Radius, true
	case *Cylinder:
		return sh.Radius, true
	case *Cone:
		return sh.Radius, true
	case *Round:
		if inner, ok := sh.Inner.(*Cylinder); ok {
			return inner.Radius, true
		}
	}
	return 0, false
}

// SetRadius updates the radius on the kinds that define one.
func SetRadius(s Shape, radius float64) {
	radius = clampDim(radius)
	switch sh := s.(type) {
	case *Ball:
		sh.Radius = radius
	case *Capsule:
		sh.Radius = radius
	case *Cylinder:
		sh.Radius = radius
	case *Cone:
		sh.Radius = radius
	case *Round:
		if inner, ok := sh.Inner.(*Cylinder); ok {
			inner.Radius = radius
		}
	}
}

// HalfExtents returns the half-extents of a cuboid or rounded cuboid.
func HalfExtents(s Shape) (r3.Vector, bool) {
	switch sh := s.(type) {
	case *Cuboid:
		return sh.HalfExtents, true
	case *Round:
		if inner, ok := sh.Inner.(*Cuboid); ok {
			return inner.HalfExtents, true
		}
	}
	return r3.Vector{}, false
}

// SetHalfExtents updates the half-extents of a cuboid or rounded cuboid.
func SetHalfExtents(s Shape, halfExtents r3.Vector) {
	halfExtents = r3.Vector{X: clampDim(halfExtents.X), Y: clampDim(halfExtents.Y), Z: clampDim(halfExtents.Z)}
	switch sh := s.(type) {
	case *Cuboid:
		sh.HalfExtents = halfExtents
	case *Round:
		if inner, ok := sh.Inner.(*Cuboid); ok {
			inner.HalfExtents = halfExtents
		}
	}
}

// HalfHeight returns the half height of a capsule, cylinder, rounded
// cylinder, or cone.
func HalfHeight(s Shape) (float64, bool) {
	switch sh := s.(type) {
	case *Capsule:
		return sh.HalfHeight, true
	case *Cylinder:
		return sh.HalfHeight, true
	case *Cone:
		return sh.HalfHeight, true
	case *Round:
		if inner, ok := sh.Inner.(*Cylinder); ok {
			return inner.HalfHeight, true
		}
	}
	return 0, false
}

// SetHalfHeight updates the half height on the kinds that define one.
func SetHalfHeight(s Shape, halfHeight float64) {
	halfHeight = clampDim(halfHeight)
	switch sh := s.(type) {
	case *Capsule:
		sh.HalfHeight = halfHeight
	case *Cylinder:
		sh.HalfHeight = halfHeight
	case *Cone:
		sh.HalfHeight = halfHeight
	case *Round:
		if inner, ok := sh.Inner.(*Cylinder); ok {
			inner.HalfHeight = halfHeight
		}
	}
}

// RoundRadius returns the border radius of a rounded shape.
func RoundRadius(s Shape) (float64, bool) {
	if sh, ok := s.(*Round); ok {
		return sh.BorderRadius, true
	}
	return 0, false
}

// SetRoundRadius updates the border radius of a rounded shape.
func SetRoundRadius(s Shape, borderRadius float64) {
	if sh, ok := s.(*Round); ok {
		sh.BorderRadius = clampDim(borderRadius)
	}
}

// HalfSpaceNormal returns the outward normal of a half-space.
func HalfSpaceNormal(s Shape) (r3.Vector, bool) {
	if sh, ok := s.(*HalfSpace); ok {
		return sh.Normal, true
	}
	return r3.Vector{}, false
}

// Vertices returns the flat stride-3 coordinate buffer of the polygonal
// kinds: segment, triangle (bare or rounded), polyline, trimesh, and convex
// polyhedron (bare or rounded).
func Vertices(s Shape) ([]float64, bool) {
	switch sh := s.(type) {
	case *Segment:
		return flattenPoints([]r3.Vector{sh.A, sh.B}), true
	case *Triangle:
		return flattenPoints([]r3.Vector{sh.A, sh.B, sh.C}), true
	case *Polyline:
		return flattenPoints(sh.vertices), true
	case *TriMesh:
		return flattenPoints(sh.vertices), true
	case *ConvexPolyhedron:
		return flattenPoints(sh.points), true
	case *Round:
		switch inner := sh.Inner.(type) {
		case *Triangle:
			return flattenPoints([]r3.Vector{inner.A, inner.B, inner.C}), true
		case *ConvexPolyhedron:
			return flattenPoints(inner.points), true
		}
	}
	return nil, false
}

// Indices returns the flat index buffer of the kinds with explicit
// connectivity: trimesh and polyline always, convex polyhedra only when they
// were built from an indexed mesh.
func Indices(s Shape) ([]uint32, bool) {
	switch sh := s.(type) {
	case *TriMesh:
		flat := make([]uint32, 0, len(sh.indices)*3)
		for _, tri := range sh.indices {
			flat = append(flat, tri[0], tri[1], tri[2])
		}
		return flat, true
	case *Polyline:
		flat := make([]uint32, 0, len(sh.indices)*2)
		for _, seg := range sh.indices {
			flat = append(flat, seg[0], seg[1])
		}
		return flat, true
	case *ConvexPolyhedron:
		return flattenFaces(sh.faces)
	case *Round:
		if inner, ok := sh.Inner.(*ConvexPolyhedron); ok {
			return flattenFaces(inner.faces)
		}
	}
	return nil, false
}

func flattenFaces(faces [][3]uint32) ([]uint32, bool) {
	if faces == nil {
		return nil, false
	}
	flat := make([]uint32, 0, len(faces)*3)
	for _, tri := range faces {
		flat = append(flat, tri[0], tri[1], tri[2])
	}
	return flat, true
}

// TriMeshFlags returns the flags of a triangle mesh.
func TriMeshFlags(s Shape) (MeshFlags, bool) {
	if sh, ok := s.(*TriMesh); ok {
		return sh.flags, true
	}
	return 0, false
}

// HeightFieldFlagsOf returns the flags of a height field.
func HeightFieldFlagsOf(s Shape) (HeightFieldFlags, bool) {
	if sh, ok := s.(*HeightField); ok {
		return sh.flags, true
	}
	return 0, false
}

// HeightFieldHeights returns the height samples of a height field.
func HeightFieldHeights(s Shape) ([]float64, bool) {
	if sh, ok := s.(*HeightField); ok {
		out := make([]float64, len(sh.heights))
		copy(out, sh.heights)
		return out, true
	}
	return nil, false
}

// HeightFieldScale returns the per-axis scale of a height field.
func HeightFieldScale(s Shape) (r3.Vector, bool) {
	if sh, ok := s.(*HeightField); ok {
		return sh.scale, true
	}
	return r3.Vector{}, false
}

// HeightFieldNRows returns the number of cell rows of a height field.
func HeightFieldNRows(s Shape) (int, bool) {
	if sh, ok := s.(*HeightField); ok {
		return sh.nrows, true
	}
	return 0, false
}

// HeightFieldNCols returns the number of cell columns of a height field.
func HeightFieldNCols(s Shape) (int, bool) {
	if sh, ok := s.(*HeightField); ok {
		return sh.ncols, true
	}
	return 0, false
}

// Volume returns the volume of the shape in its own units. Surface-only
// kinds (segments, triangles, polylines, meshes, half-spaces, height fields)
// report zero, matching the mass bookkeeping of the collision core for
// non-solid shapes.
func Volume(s Shape) float64 {
	switch sh := s.(type) {
	case *Ball:
		return 4.0 / 3.0 * math.Pi * sh.Radius * sh.Radius * sh.Radius
	case *Cuboid:
		return 8 * sh.HalfExtents.X * sh.HalfExtents.Y * sh.HalfExtents.Z
	case *Capsule:
		r := sh.Radius
		return math.Pi*r*r*(2*sh.HalfHeight) + 4.0/3.0*math.Pi*r*r*r
	case *Cylinder:
		return math.Pi * sh.Radius * sh.Radius * 2 * sh.HalfHeight
	case *Cone:
		return math.Pi * sh.Radius * sh.Radius * 2 * sh.HalfHeight / 3
	case *Voxels:
		size := sh.voxelSize
		return float64(len(sh.cells)) * size.X * size.Y * size.Z
	case *Compound:
		total := 0.0
		for _, part := range sh.Parts {
			total += Volume(part.Shape)
		}
		return total
	case *Round:
		// Inflation is ignored; the inner volume is the dominant term.
		return Volume(sh.Inner)
	default:
		return 0
	}
}

// ensure the catalog implements Shape
var (
	_ Shape = (*Ball)(nil)
	_ Shape = (*Cuboid)(nil)
	_ Shape = (*Capsule)(nil)
	_ Shape = (*Cylinder)(nil)
	_ Shape = (*Cone)(nil)
	_ Shape = (*Segment)(nil)
	_ Shape = (*Triangle)(nil)
	_ Shape = (*Polyline)(nil)
	_ Shape = (*TriMesh)(nil)
	_ Shape = (*HeightField)(nil)
	_ Shape = (*ConvexPolyhedron)(nil)
	_ Shape = (*HalfSpace)(nil)
	_ Shape = (*Compound)(nil)
	_ Shape = (*Voxels)(nil)
	_ Shape = (*Round)(nil)
)
