// Package collision implements pose-aware geometric queries over the shape
// catalog: ray casting, shape casting, intersection and contact testing, and
// point projection. All functions are pure; they never mutate the shapes or
// poses they are given.
package collision

import (
	"github.com/golang/geo/r3"
)

// NoHit is the sentinel returned by CastRay when the ray misses. Any negative
// value means no hit; a zero return is a legitimate hit at the ray origin.
const NoHit = -1.0

// FeatureKind classifies the geometric feature a ray hit landed on.
type FeatureKind int

// Feature kinds.
const (
	FeatureUnknown FeatureKind = iota
	FeatureVertex
	FeatureEdge
	FeatureFace
)

// Feature identifies the sub-feature of a shape hit by a ray: for meshes and
// height fields the index is the triangle index, for polylines the segment
// index. Unknown for analytic shapes.
type Feature struct {
	Kind  FeatureKind
	Index uint32
}

// RayIntersection is the result of CastRayAndGetNormal. TOI is expressed in
// units of the ray direction vector, like the scalar returned by CastRay.
type RayIntersection struct {
	TOI     float64
	Normal  r3.Vector
	Feature Feature
}

// PointProjection is the result of ProjectPoint. Point is the projection in
// world space. IsInside is true only for a solid query whose point lies
// inside the shape; boundary-only (solid=false) queries always report false.
type PointProjection struct {
	Point    r3.Vector
	IsInside bool
}

// ShapeContact describes the closest points between two shapes within a
// prediction margin. Dist is negative when the shapes penetrate. Point1 and
// Point2 are world-space witness points; Normal1 and Normal2 are the
// world-space outward directions at those points (Normal2 = -Normal1).
type ShapeContact struct {
	Dist    float64
	Point1  r3.Vector
	Point2  r3.Vector
	Normal1 r3.Vector
	Normal2 r3.Vector
}

// CastStatus reports how a shape cast terminated.
type CastStatus int

// Shape cast statuses.
const (
	// CastConverged means the reported time of impact is accurate.
	CastConverged CastStatus = iota
	// CastPenetrating means the shapes were already overlapping (or within
	// the target distance) at the start of the cast.
	CastPenetrating
	// CastOutOfIterations means the advancement loop hit its iteration
	// budget; the reported time of impact is a conservative lower bound.
	CastOutOfIterations
)

// ShapeCastHit is the result of CastShapes: the earliest time at which the
// swept shapes come within the target distance, with the witness points and
// normals at that time.
type ShapeCastHit struct {
	TOI     float64
	Point1  r3.Vector
	Point2  r3.Vector
	Normal1 r3.Vector
	Normal2 r3.Vector
	Status  CastStatus
}

// ShapeCastOptions controls CastShapes.
type ShapeCastOptions struct {
	// TargetDistance makes the cast hit when the shapes come within this
	// separation, not only on exact touch.
	TargetDistance float64
	// MaxTOI bounds the sweep; hits beyond it are not reported.
	MaxTOI float64
	// StopAtPenetration makes an initial overlap an immediate hit at time
	// zero. When false, an initially-penetrating pair that is separating is
	// ignored and the cast looks for a later impact instead.
	StopAtPenetration bool
}
