package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// Intersects reports whether two posed shapes overlap. When the underlying
// iteration cannot reach a verdict the pair is reported as not intersecting.
func Intersects(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose) bool {
	for _, a := range decompose(s1, p1) {
		for _, b := range decompose(s2, p2) {
			contact, ok := convexContact(a.shape, a.pose, b.shape, b.pose)
			if ok && contact.Dist <= 0 {
				return true
			}
		}
	}
	return false
}

// Contact returns the closest-point contact between two posed shapes when
// their separation is at most the prediction margin. Dist is negative on
// penetration. The second return is false when the shapes are further apart
// than the prediction, and also when the computation is inconclusive.
func Contact(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose, prediction float64) (ShapeContact, bool) {
	best := ShapeContact{Dist: math.Inf(1)}
	found := false
	for _, a := range decompose(s1, p1) {
		for _, b := range decompose(s2, p2) {
			contact, ok := convexContact(a.shape, a.pose, b.shape, b.pose)
			if ok && contact.Dist < best.Dist {
				best = contact
				found = true
			}
		}
	}
	if !found || best.Dist > prediction {
		return ShapeContact{}, false
	}
	return best, true
}

// Distance returns the separation between two posed shapes, zero when they
// touch or overlap. The second return is false when inconclusive.
func Distance(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose) (float64, bool) {
	contact, ok := Contact(s1, p1, s2, p2, math.Inf(1))
	if !ok {
		return 0, false
	}
	return math.Max(contact.Dist, 0), true
}

// convexContact computes the contact between two convex pieces (or pieces
// involving a half-space). The second return is false on an inconclusive
// iteration.
func convexContact(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose) (ShapeContact, bool) {
	if b1, ok1 := s1.(*shape.Ball); ok1 {
		if b2, ok2 := s2.(*shape.Ball); ok2 {
			return ballBallContact(b1.Radius, p1.Point(), b2.Radius, p2.Point()), true
		}
	}
	if hs, ok := s1.(*shape.HalfSpace); ok {
		if hs2, ok2 := s2.(*shape.HalfSpace); ok2 {
			return halfSpacePairContact(hs, p1, hs2, p2)
		}
		contact, ok := halfSpaceContact(hs, p1, s2, p2)
		return contact, ok
	}
	if hs, ok := s2.(*shape.HalfSpace); ok {
		contact, ok := halfSpaceContact(hs, p2, s1, p1)
		return flipContact(contact), ok
	}

	res, ok := gjkDistance(s1, p1, s2, p2)
	if !ok {
		return ShapeContact{}, false
	}
	if res.intersecting || res.dist <= 1e-9 {
		return penetrationContact(s1, p1, s2, p2), true
	}
	normal := res.point2.Sub(res.point1).Mul(1 / res.dist)
	return ShapeContact{
		Dist:    res.dist,
		Point1:  res.point1,
		Point2:  res.point2,
		Normal1: normal,
		Normal2: normal.Mul(-1),
	}, true
}

func ballBallContact(r1 float64, c1 r3.Vector, r2 float64, c2 r3.Vector) ShapeContact {
	delta := c2.Sub(c1)
	centerDist := delta.Norm()
	normal := r3.Vector{X: 1}
	if centerDist > 1e-12 {
		normal = delta.Mul(1 / centerDist)
	}
	return ShapeContact{
		Dist:    centerDist - r1 - r2,
		Point1:  c1.Add(normal.Mul(r1)),
		Point2:  c2.Sub(normal.Mul(r2)),
		Normal1: normal,
		Normal2: normal.Mul(-1),
	}
}

// halfSpaceContact measures the other shape's deepest point against the
// half-space boundary plane.
func halfSpaceContact(hs *shape.HalfSpace, hsPose spatialmath.Pose, other shape.Shape, otherPose spatialmath.Pose) (ShapeContact, bool) {
	normal := hsPose.RotateVector(hs.Normal)
	planePoint := hsPose.Point()
	deepest := supportWorld(other, otherPose, normal.Mul(-1))
	dist := deepest.Sub(planePoint).Dot(normal)
	return ShapeContact{
		Dist:    dist,
		Point1:  deepest.Sub(normal.Mul(dist)),
		Point2:  deepest,
		Normal1: normal,
		Normal2: normal.Mul(-1),
	}, true
}

// halfSpacePairContact handles two half-spaces: they overlap unless their
// normals are exactly opposed with a positive gap between the planes.
func halfSpacePairContact(hs1 *shape.HalfSpace, p1 spatialmath.Pose, hs2 *shape.HalfSpace, p2 spatialmath.Pose) (ShapeContact, bool) {
	n1 := p1.RotateVector(hs1.Normal)
	n2 := p2.RotateVector(hs2.Normal)
	if n1.Dot(n2) > -1+1e-9 {
		return ShapeContact{Dist: math.Inf(-1), Normal1: n1, Normal2: n2}, true
	}
	gap := p2.Point().Sub(p1.Point()).Dot(n1)
	return ShapeContact{
		Dist:    gap,
		Point1:  p1.Point(),
		Point2:  p1.Point().Add(n1.Mul(gap)),
		Normal1: n1,
		Normal2: n2,
	}, true
}

func flipContact(c ShapeContact) ShapeContact {
	return ShapeContact{
		Dist:    c.Dist,
		Point1:  c.Point2,
		Point2:  c.Point1,
		Normal1: c.Normal2,
		Normal2: c.Normal1,
	}
}

// penetrationDirections is the sampled set used to estimate the minimum
// separating direction of overlapping shapes: the axes, the cube corners, and
// the edge midpoint directions.
var penetrationDirections = buildPenetrationDirections()

func buildPenetrationDirections() []r3.Vector {
	var dirs []r3.Vector
	for _, x := range []float64{-1, 0, 1} {
		for _, y := range []float64{-1, 0, 1} {
			for _, z := range []float64{-1, 0, 1} {
				v := r3.Vector{X: x, Y: y, Z: z}
				if v.Norm2() == 0 {
					continue
				}
				dirs = append(dirs, v.Normalize())
			}
		}
	}
	return dirs
}

// penetrationContact estimates the contact of two overlapping convex shapes
// by sampling support directions for the smallest separation. The depth is an
// upper bound on the true penetration.
func penetrationContact(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose) ShapeContact {
	dirs := penetrationDirections
	if centers := p2.Point().Sub(p1.Point()); centers.Norm2() > 1e-18 {
		dirs = append([]r3.Vector{centers.Normalize()}, dirs...)
	}

	bestDepth := math.Inf(1)
	var bestDir r3.Vector
	for _, d := range dirs {
		sep := supportWorld(s1, p1, d).Sub(supportWorld(s2, p2, d.Mul(-1))).Dot(d)
		if sep < bestDepth {
			bestDepth = sep
			bestDir = d
		}
	}

	pt1 := supportWorld(s1, p1, bestDir)
	pt2 := supportWorld(s2, p2, bestDir.Mul(-1))
	return ShapeContact{
		Dist:    -bestDepth,
		Point1:  pt1,
		Point2:  pt2,
		Normal1: bestDir,
		Normal2: bestDir.Mul(-1),
	}
}
