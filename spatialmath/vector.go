package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// R3VectorAlmostEqual compares two r3 vectors component-wise within tol.
func R3VectorAlmostEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

// SafeNormalize returns the unit vector in the direction of v, or the zero
// vector when v has no usable direction.
func SafeNormalize(v r3.Vector) r3.Vector {
	norm := v.Norm()
	if norm < 1e-12 {
		return r3.Vector{}
	}
	return v.Mul(1 / norm)
}

// OrthogonalVector returns an arbitrary unit vector perpendicular to v,
// which must be nonzero.
func OrthogonalVector(v r3.Vector) r3.Vector {
	if math.Abs(v.X) <= math.Abs(v.Y) && math.Abs(v.X) <= math.Abs(v.Z) {
		return SafeNormalize(r3.Vector{X: 0, Y: -v.Z, Z: v.Y})
	}
	if math.Abs(v.Y) <= math.Abs(v.Z) {
		return SafeNormalize(r3.Vector{X: -v.Z, Y: 0, Z: v.X})
	}
	return SafeNormalize(r3.Vector{X: -v.Y, Y: v.X, Z: 0})
}
