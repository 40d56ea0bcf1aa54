package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// ProjectPoint projects a world-space point onto a posed shape. The function
// is total: every shape kind yields a projection. With solid=true an interior
// point projects to itself and reports IsInside; with solid=false the shape
// is treated as its boundary, the projection lands on that boundary, and
// IsInside is always false.
func ProjectPoint(s shape.Shape, pose spatialmath.Pose, point r3.Vector, solid bool) PointProjection {
	local := pose.InverseTransformPoint(point)
	boundary, inside := projectLocal(s, local)
	if solid && inside {
		return PointProjection{Point: point, IsInside: true}
	}
	return PointProjection{Point: pose.TransformPoint(boundary), IsInside: false}
}

// ContainsPoint reports whether a world-space point lies inside the posed
// shape (on-boundary counts as inside). Boundary-only kinds never contain.
func ContainsPoint(s shape.Shape, pose spatialmath.Pose, point r3.Vector) bool {
	_, inside := projectLocal(s, pose.InverseTransformPoint(point))
	return inside
}

// distanceToBoundary returns the unsigned distance from a local point to the
// shape's boundary, and whether the point is inside. Used by the ray marcher.
func distanceToBoundary(s shape.Shape, local r3.Vector) (float64, bool) {
	boundary, inside := projectLocal(s, local)
	return boundary.Sub(local).Norm(), inside
}

// projectLocal returns the closest boundary point (in the shape's local
// frame) and whether the query point is inside the shape's solid region.
func projectLocal(s shape.Shape, pt r3.Vector) (r3.Vector, bool) {
	switch sh := s.(type) {
	case *shape.Ball:
		return projectBall(sh.Radius, pt)
	case *shape.Cuboid:
		return projectCuboid(sh.HalfExtents, pt)
	case *shape.Capsule:
		seg := shape.NewSegment(r3.Vector{Y: -sh.HalfHeight}, r3.Vector{Y: sh.HalfHeight})
		onSeg, _ := projectSegment(seg.A, seg.B, pt)
		return inflate(onSeg, pt, sh.Radius)
	case *shape.Cylinder:
		return projectCylinder(sh.HalfHeight, sh.Radius, pt)
	case *shape.Cone:
		return projectCone(sh.HalfHeight, sh.Radius, pt)
	case *shape.Segment:
		boundary, _ := projectSegment(sh.A, sh.B, pt)
		return boundary, false
	case *shape.Triangle:
		return projectTriangle(sh, pt), false
	case *shape.HalfSpace:
		signed := pt.Dot(sh.Normal)
		return pt.Sub(sh.Normal.Mul(signed)), signed <= 0
	case *shape.Round:
		return projectRound(sh, pt)
	case *shape.ConvexPolyhedron:
		return projectConvexPolyhedron(sh, pt)
	case *shape.Polyline, *shape.TriMesh, *shape.HeightField:
		boundary, _, _ := projectComposite(s, pt)
		return boundary, false
	case *shape.Voxels:
		return projectVoxels(sh, pt)
	case *shape.Compound:
		return projectComposite2(s, pt)
	default:
		return pt, false
	}
}

func projectBall(radius float64, pt r3.Vector) (r3.Vector, bool) {
	dist := pt.Norm()
	inside := dist <= radius
	if dist < 1e-12 {
		// Center of the ball: every boundary point is equally close.
		return r3.Vector{X: radius}, inside
	}
	return pt.Mul(radius / dist), inside
}

func projectCuboid(he r3.Vector, pt r3.Vector) (r3.Vector, bool) {
	clamped := r3.Vector{
		X: clampAbs(pt.X, he.X),
		Y: clampAbs(pt.Y, he.Y),
		Z: clampAbs(pt.Z, he.Z),
	}
	if clamped != pt {
		return clamped, false
	}
	// Inside: push to the nearest face.
	gapX := he.X - math.Abs(pt.X)
	gapY := he.Y - math.Abs(pt.Y)
	gapZ := he.Z - math.Abs(pt.Z)
	boundary := pt
	switch {
	case gapX <= gapY && gapX <= gapZ:
		boundary.X = math.Copysign(he.X, pt.X)
	case gapY <= gapZ:
		boundary.Y = math.Copysign(he.Y, pt.Y)
	default:
		boundary.Z = math.Copysign(he.Z, pt.Z)
	}
	return boundary, true
}

func clampAbs(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func projectSegment(a, b, pt r3.Vector) (r3.Vector, float64) {
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return a, 0
	}
	t := clamp01(pt.Sub(a).Dot(ab) / denom)
	return a.Add(ab.Mul(t)), t
}

// inflate maps a projection onto a core (segment, cuboid, ...) to the
// boundary of the core inflated by a radius, for the query point pt.
func inflate(core, pt r3.Vector, radius float64) (r3.Vector, bool) {
	delta := pt.Sub(core)
	dist := delta.Norm()
	inside := dist <= radius
	if dist < 1e-12 {
		return core.Add(r3.Vector{X: radius}), inside
	}
	return core.Add(delta.Mul(radius / dist)), inside
}

func projectCylinder(halfHeight, radius float64, pt r3.Vector) (r3.Vector, bool) {
	radial := r3.Vector{X: pt.X, Z: pt.Z}
	rr := radial.Norm()
	inside := math.Abs(pt.Y) <= halfHeight && rr <= radius

	if !inside {
		out := pt
		if rr > radius {
			scaled := radial.Mul(radius / rr)
			out.X, out.Z = scaled.X, scaled.Z
		}
		out.Y = clampAbs(pt.Y, halfHeight)
		return out, false
	}

	// Inside: nearest of the lateral surface and the caps.
	sideGap := radius - rr
	capGap := halfHeight - math.Abs(pt.Y)
	if sideGap <= capGap {
		dir := spatialmath.SafeNormalize(radial)
		if dir.Norm() == 0 {
			dir = r3.Vector{X: 1}
		}
		scaled := dir.Mul(radius)
		return r3.Vector{X: scaled.X, Y: pt.Y, Z: scaled.Z}, true
	}
	return r3.Vector{X: pt.X, Y: math.Copysign(halfHeight, pt.Y), Z: pt.Z}, true
}

func projectCone(halfHeight, radius float64, pt r3.Vector) (r3.Vector, bool) {
	// Work in the (radial, y) half-plane; the boundary is the base segment
	// plus the slant segment from the base rim to the apex.
	radial := r3.Vector{X: pt.X, Z: pt.Z}
	rr := radial.Norm()
	u := spatialmath.SafeNormalize(radial)
	if u.Norm() == 0 {
		u = r3.Vector{X: 1}
	}

	inside := false
	if pt.Y >= -halfHeight && pt.Y <= halfHeight {
		if 2*halfHeight > 0 {
			inside = rr <= radius*(halfHeight-pt.Y)/(2*halfHeight)
		} else {
			inside = rr <= radius
		}
	}

	q := r3.Vector{X: rr, Y: pt.Y} // 2D query point
	base0 := r3.Vector{X: 0, Y: -halfHeight}
	base1 := r3.Vector{X: radius, Y: -halfHeight}
	apex := r3.Vector{X: 0, Y: halfHeight}

	onBase, _ := projectSegment(base0, base1, q)
	onSlant, _ := projectSegment(base1, apex, q)
	best := onBase
	if q.Sub(onSlant).Norm2() < q.Sub(onBase).Norm2() {
		best = onSlant
	}
	scaled := u.Mul(best.X)
	return r3.Vector{X: scaled.X, Y: best.Y, Z: scaled.Z}, inside
}

// projectTriangle follows the edge/interior split of the classic
// closest-point-on-triangle routine.
func projectTriangle(tri *shape.Triangle, pt r3.Vector) r3.Vector {
	e0 := tri.B.Sub(tri.A)
	e1 := tri.C.Sub(tri.A)
	a := e0.Norm2()
	b := e0.Dot(e1)
	c := e1.Norm2()
	d := pt.Sub(tri.A)
	det := a*c - b*b
	if math.Abs(det) > 1e-18 {
		u := (c*e0.Dot(d) - b*e1.Dot(d)) / det
		v := (-b*e0.Dot(d) + a*e1.Dot(d)) / det
		if u >= 0 && v >= 0 && u+v <= 1 {
			return tri.A.Add(e0.Mul(u)).Add(e1.Mul(v))
		}
	}

	best, _ := projectSegment(tri.A, tri.B, pt)
	bestDist := pt.Sub(best).Norm2()
	if onEdge, _ := projectSegment(tri.B, tri.C, pt); pt.Sub(onEdge).Norm2() < bestDist {
		best = onEdge
		bestDist = pt.Sub(onEdge).Norm2()
	}
	if onEdge, _ := projectSegment(tri.C, tri.A, pt); pt.Sub(onEdge).Norm2() < bestDist {
		best = onEdge
	}
	return best
}

func projectRound(sh *shape.Round, pt r3.Vector) (r3.Vector, bool) {
	innerBoundary, innerInside := projectLocal(sh.Inner, pt)
	delta := pt.Sub(innerBoundary)
	dist := delta.Norm()

	if innerInside {
		// The rounded boundary lies further out along the inner boundary's
		// outward direction.
		dir := spatialmath.SafeNormalize(innerBoundary.Sub(pt))
		if dir.Norm() == 0 {
			dir = r3.Vector{X: 1}
		}
		return innerBoundary.Add(dir.Mul(sh.BorderRadius)), true
	}
	inside := dist <= sh.BorderRadius
	if dist < 1e-12 {
		return innerBoundary, inside
	}
	return innerBoundary.Add(delta.Mul(sh.BorderRadius / dist)), inside
}

func projectConvexPolyhedron(sh *shape.ConvexPolyhedron, pt r3.Vector) (r3.Vector, bool) {
	zero := spatialmath.NewZeroPose()
	ptShape := &shape.Ball{Radius: 0}
	res, ok := gjkDistance(sh, zero, ptShape, spatialmath.NewPoseFromPoint(pt))
	if ok && !res.intersecting && res.dist > 1e-12 {
		return res.point1, false
	}

	// The point is inside (or on) the hull. If faces are known project onto
	// them, otherwise bisect along an outward ray to find the boundary.
	if faces := sh.Faces(); faces != nil {
		points := sh.Points()
		best := pt
		bestDist := math.Inf(1)
		for _, f := range faces {
			tri := shape.NewTriangle(points[f[0]], points[f[1]], points[f[2]])
			candidate := projectTriangle(tri, pt)
			if d := pt.Sub(candidate).Norm2(); d < bestDist {
				best = candidate
				bestDist = d
			}
		}
		return best, true
	}
	return hullBoundaryByBisection(sh, pt), true
}

// hullBoundaryByBisection walks outward from an interior point until it
// leaves the hull, then bisects the crossing to locate the boundary.
func hullBoundaryByBisection(sh *shape.ConvexPolyhedron, pt r3.Vector) r3.Vector {
	points := sh.Points()
	centroid := r3.Vector{}
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(points)))

	dir := spatialmath.SafeNormalize(pt.Sub(centroid))
	if dir.Norm() == 0 {
		dir = r3.Vector{X: 1}
	}
	// An upper bound on how far the hull extends from pt in this direction.
	reach := supportLocal(sh, dir).Sub(pt).Dot(dir) + 1e-6
	if reach < 1e-6 {
		reach = 1e-6
	}

	lo, hi := 0.0, reach
	for i := 0; i < 64; i++ {
		mid := (lo + hi) / 2
		if hullContains(sh, pt.Add(dir.Mul(mid))) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return pt.Add(dir.Mul((lo + hi) / 2))
}

func hullContains(sh *shape.ConvexPolyhedron, pt r3.Vector) bool {
	zero := spatialmath.NewZeroPose()
	res, ok := gjkDistance(sh, zero, &shape.Ball{Radius: 0}, spatialmath.NewPoseFromPoint(pt))
	return ok && (res.intersecting || res.dist <= 1e-9)
}

// projectComposite projects onto the nearest primitive of a decomposed
// boundary-only shape, returning the winning feature as well.
func projectComposite(s shape.Shape, pt r3.Vector) (r3.Vector, Feature, bool) {
	zero := spatialmath.NewZeroPose()
	best := pt
	bestFeature := Feature{}
	bestDist := math.Inf(1)
	found := false
	for _, piece := range decompose(s, zero) {
		local := piece.pose.InverseTransformPoint(pt)
		boundary, _ := projectLocal(piece.shape, local)
		world := piece.pose.TransformPoint(boundary)
		if d := pt.Sub(world).Norm2(); d < bestDist {
			best = world
			bestFeature = piece.feature
			bestDist = d
			found = true
		}
	}
	return best, bestFeature, found
}

// projectComposite2 is the solid variant used for compounds: inside when any
// part contains the point.
func projectComposite2(s shape.Shape, pt r3.Vector) (r3.Vector, bool) {
	zero := spatialmath.NewZeroPose()
	best := pt
	bestDist := math.Inf(1)
	inside := false
	for _, piece := range decompose(s, zero) {
		local := piece.pose.InverseTransformPoint(pt)
		boundary, pieceInside := projectLocal(piece.shape, local)
		world := piece.pose.TransformPoint(boundary)
		if pieceInside {
			inside = true
		}
		if d := pt.Sub(world).Norm2(); d < bestDist {
			best = world
			bestDist = d
		}
	}
	return best, inside
}

func projectVoxels(sh *shape.Voxels, pt r3.Vector) (r3.Vector, bool) {
	size := sh.VoxelSize()
	key := shape.VoxelKey{
		X: int32(math.Floor(pt.X / size.X)),
		Y: int32(math.Floor(pt.Y / size.Y)),
		Z: int32(math.Floor(pt.Z / size.Z)),
	}
	inside := sh.IsFilled(key)
	boundary, _ := projectComposite2(sh, pt)
	return boundary, inside
}
