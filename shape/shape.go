// Package shape defines the closed catalog of collision shapes and the typed
// accessor surface over their parameters.
package shape

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/kinemotion/geomkit/spatialmath"
)

// PointStride is the number of scalars per point in the flat coordinate
// buffers exchanged with callers. This is the spatial build.
const PointStride = 3

// Type enumerates every shape kind in the catalog. The catalog is closed:
// accessors and queries type-switch over it exhaustively.
type Type int

// The shape kinds.
const (
	TypeBall Type = iota
	TypeCuboid
	TypeCapsule
	TypeSegment
	TypePolyline
	TypeTriangle
	TypeTriMesh
	TypeHeightField
	TypeCompound
	TypeConvexPolyhedron
	TypeCylinder
	TypeCone
	TypeRoundCuboid
	TypeRoundTriangle
	TypeRoundCylinder
	TypeRoundCone
	TypeRoundConvexPolyhedron
	TypeHalfSpace
	TypeVoxels
)

func (t Type) String() string {
	switch t {
	case TypeBall:
		return "ball"
	case TypeCuboid:
		return "cuboid"
	case TypeCapsule:
		return "capsule"
	case TypeSegment:
		return "segment"
	case TypePolyline:
		return "polyline"
	case TypeTriangle:
		return "triangle"
	case TypeTriMesh:
		return "trimesh"
	case TypeHeightField:
		return "heightfield"
	case TypeCompound:
		return "compound"
	case TypeConvexPolyhedron:
		return "convex_polyhedron"
	case TypeCylinder:
		return "cylinder"
	case TypeCone:
		return "cone"
	case TypeRoundCuboid:
		return "round_cuboid"
	case TypeRoundTriangle:
		return "round_triangle"
	case TypeRoundCylinder:
		return "round_cylinder"
	case TypeRoundCone:
		return "round_cone"
	case TypeRoundConvexPolyhedron:
		return "round_convex_polyhedron"
	case TypeHalfSpace:
		return "halfspace"
	case TypeVoxels:
		return "voxels"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Shape is a single geometric primitive from the catalog. Concrete shapes are
// pointer types so parameter setters mutate in place; replacing a shape
// wholesale is done at the collider level.
type Shape interface {
	Type() Type
}

// Ball is a sphere centered on its local origin.
type Ball struct {
	Radius float64
}

// Cuboid is an axis-aligned box (in its local frame) described by half-extents.
type Cuboid struct {
	HalfExtents r3.Vector
}

// Capsule is a segment along the local Y axis, inflated by a radius.
type Capsule struct {
	HalfHeight float64
	Radius     float64
}

// Cylinder has its principal axis along local Y.
type Cylinder struct {
	HalfHeight float64
	Radius     float64
}

// Cone has its principal axis along local Y, apex at +HalfHeight.
type Cone struct {
	HalfHeight float64
	Radius     float64
}

// Segment is the line segment between two local points.
type Segment struct {
	A, B r3.Vector
}

// Triangle is a single triangle with vertices in its local frame.
type Triangle struct {
	A, B, C r3.Vector
}

// HalfSpace is the set of points behind a plane through the local origin.
// The normal points out of the solid region and is kept unit-length.
type HalfSpace struct {
	Normal r3.Vector
}

// CompoundPart is one shape of a compound, placed relative to the compound's
// local frame.
type CompoundPart struct {
	Pose  spatialmath.Pose
	Shape Shape
}

// Compound groups several posed shapes into one.
type Compound struct {
	Parts []CompoundPart
}

func (b *Ball) Type() Type              { return TypeBall }
func (c *Cuboid) Type() Type            { return TypeCuboid }
func (c *Capsule) Type() Type           { return TypeCapsule }
func (c *Cylinder) Type() Type          { return TypeCylinder }
func (c *Cone) Type() Type              { return TypeCone }
func (s *Segment) Type() Type           { return TypeSegment }
func (t *Triangle) Type() Type          { return TypeTriangle }
func (h *HalfSpace) Type() Type         { return TypeHalfSpace }
func (c *Compound) Type() Type          { return TypeCompound }

// NewBall returns a ball shape. The radius may be zero but not negative.
func NewBall(radius float64) (*Ball, error) {
	if radius < 0 {
		return nil, newBadDimensionsError(TypeBall)
	}
	return &Ball{Radius: radius}, nil
}

// NewCuboid returns a cuboid with the given half-extents.
func NewCuboid(halfExtents r3.Vector) (*Cuboid, error) {
	if halfExtents.X < 0 || halfExtents.Y < 0 || halfExtents.Z < 0 {
		return nil, newBadDimensionsError(TypeCuboid)
	}
	return &Cuboid{HalfExtents: halfExtents}, nil
}

// NewCapsule returns a capsule along the Y axis.
func NewCapsule(halfHeight, radius float64) (*Capsule, error) {
	if halfHeight < 0 || radius < 0 {
		return nil, newBadDimensionsError(TypeCapsule)
	}
	return &Capsule{HalfHeight: halfHeight, Radius: radius}, nil
}

// NewCylinder returns a cylinder along the Y axis.
func NewCylinder(halfHeight, radius float64) (*Cylinder, error) {
	if halfHeight < 0 || radius < 0 {
		return nil, newBadDimensionsError(TypeCylinder)
	}
	return &Cylinder{HalfHeight: halfHeight, Radius: radius}, nil
}

// NewCone returns a cone along the Y axis with its apex at +halfHeight.
func NewCone(halfHeight, radius float64) (*Cone, error) {
	if halfHeight < 0 || radius < 0 {
		return nil, newBadDimensionsError(TypeCone)
	}
	return &Cone{HalfHeight: halfHeight, Radius: radius}, nil
}

// NewSegment returns the segment between a and b.
func NewSegment(a, b r3.Vector) *Segment {
	return &Segment{A: a, B: b}
}

// NewTriangle returns the triangle with the given vertices.
func NewTriangle(a, b, c r3.Vector) *Triangle {
	return &Triangle{A: a, B: b, C: c}
}

// NewHalfSpace returns a half-space with the given outward normal. The normal
// is normalized here; a zero normal is rejected.
func NewHalfSpace(normal r3.Vector) (*HalfSpace, error) {
	unit := spatialmath.SafeNormalize(normal)
	if unit.Norm() == 0 {
		return nil, errors.New("halfspace normal must be nonzero")
	}
	return &HalfSpace{Normal: unit}, nil
}

// NewCompound groups posed parts into one shape. Compounds of zero parts are
// rejected; nested compounds are flattened by the caller, not here. Part
// poses are normalized: a zero-value pose carries a zero quaternion, which
// would otherwise collapse the part's geometry when composed.
func NewCompound(parts []CompoundPart) (*Compound, error) {
	if len(parts) == 0 {
		return nil, errors.New("compound must have at least one part")
	}
	normalized := make([]CompoundPart, len(parts))
	for i, part := range parts {
		if part.Shape == nil {
			return nil, errors.New("compound part shape must not be nil")
		}
		normalized[i] = CompoundPart{
			Pose:  spatialmath.NewPose(part.Pose.Point(), part.Pose.Rotation()),
			Shape: part.Shape,
		}
	}
	return &Compound{Parts: normalized}, nil
}

func newBadDimensionsError(t Type) error {
	return errors.Errorf("shape dimensions for %s must be non-negative", t)
}
