package shape

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Round wraps an inner shape, inflating its boundary by a border radius.
// Only cuboids, triangles, cylinders, cones, and convex polyhedra have round
// variants in the catalog.
type Round struct {
	Inner        Shape
	BorderRadius float64
}

// Type returns the rounded kind corresponding to the inner shape.
func (r *Round) Type() Type {
	switch r.Inner.(type) {
	case *Cuboid:
		return TypeRoundCuboid
	case *Triangle:
		return TypeRoundTriangle
	case *Cylinder:
		return TypeRoundCylinder
	case *Cone:
		return TypeRoundCone
	case *ConvexPolyhedron:
		return TypeRoundConvexPolyhedron
	default:
		// Unreachable for shapes built through NewRound; a hand-built Round
		// reports its inner kind rather than an unrelated sentinel.
		return r.Inner.Type()
	}
}

// NewRound wraps inner with a border radius. The inner shape must be one of
// the kinds that has a rounded variant.
func NewRound(inner Shape, borderRadius float64) (*Round, error) {
	if borderRadius < 0 {
		return nil, errors.New("border radius must be non-negative")
	}
	switch inner.(type) {
	case *Cuboid, *Triangle, *Cylinder, *Cone, *ConvexPolyhedron:
		return &Round{Inner: inner, BorderRadius: borderRadius}, nil
	default:
		return nil, errors.Errorf("shape kind %s has no rounded variant", inner.Type())
	}
}

// NewRoundCuboid is a convenience constructor for a rounded cuboid.
func NewRoundCuboid(hx, hy, hz, borderRadius float64) (*Round, error) {
	inner, err := NewCuboid(r3.Vector{X: hx, Y: hy, Z: hz})
	if err != nil {
		return nil, err
	}
	return NewRound(inner, borderRadius)
}

// NewRoundCylinder is a convenience constructor for a rounded cylinder.
func NewRoundCylinder(halfHeight, radius, borderRadius float64) (*Round, error) {
	inner, err := NewCylinder(halfHeight, radius)
	if err != nil {
		return nil, err
	}
	return NewRound(inner, borderRadius)
}

// NewRoundCone is a convenience constructor for a rounded cone.
func NewRoundCone(halfHeight, radius, borderRadius float64) (*Round, error) {
	inner, err := NewCone(halfHeight, radius)
	if err != nil {
		return nil, err
	}
	return NewRound(inner, borderRadius)
}
