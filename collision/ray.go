package collision

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

const (
	rayMarchMaxSteps = 256
	rayMarchTol      = 1e-9
)

// CastRay casts a ray against a posed shape and returns the time of impact in
// units of the direction vector, or NoHit on a miss. The direction does not
// need to be normalized. With solid=true a ray starting inside the shape hits
// immediately at time zero; with solid=false it hits the boundary on the way
// out.
func CastRay(s shape.Shape, pose spatialmath.Pose, origin, dir r3.Vector, maxTOI float64, solid bool) float64 {
	hit, ok := castRay(s, pose, origin, dir, maxTOI, solid)
	if !ok {
		return NoHit
	}
	return hit.TOI
}

// CastRayAndGetNormal is CastRay with the world-space surface normal and the
// hit feature attached. The second return is false on a miss.
func CastRayAndGetNormal(s shape.Shape, pose spatialmath.Pose, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	return castRay(s, pose, origin, dir, maxTOI, solid)
}

// IntersectsRay reports whether the ray hits the posed shape at all, treating
// the shape as solid.
func IntersectsRay(s shape.Shape, pose spatialmath.Pose, origin, dir r3.Vector, maxTOI float64) bool {
	_, ok := castRay(s, pose, origin, dir, maxTOI, true)
	return ok
}

func castRay(s shape.Shape, pose spatialmath.Pose, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	localOrigin := pose.InverseTransformPoint(origin)
	localDir := pose.InverseRotateVector(dir)

	hit, ok := castRayLocal(s, localOrigin, localDir, maxTOI, solid)
	if !ok {
		return RayIntersection{}, false
	}
	hit.Normal = pose.RotateVector(hit.Normal)
	return hit, true
}

func castRayLocal(s shape.Shape, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	switch sh := s.(type) {
	case *shape.Ball:
		return castRayBall(sh.Radius, origin, dir, maxTOI, solid)
	case *shape.Cuboid:
		return castRayCuboid(sh.HalfExtents, origin, dir, maxTOI, solid)
	case *shape.HalfSpace:
		return castRayHalfSpace(sh.Normal, origin, dir, maxTOI, solid)
	case *shape.Triangle:
		return castRayTriangle(sh, origin, dir, maxTOI)
	case *shape.Voxels:
		return castRayVoxels(sh, origin, dir, maxTOI, solid)
	case *shape.Compound:
		if solid {
			return castRayComposite(s, origin, dir, maxTOI, true)
		}
		return castRayUnionBoundary(sh, origin, dir, maxTOI)
	case *shape.TriMesh, *shape.Polyline, *shape.HeightField:
		return castRayComposite(s, origin, dir, maxTOI, solid)
	default:
		return castRayMarch(s, origin, dir, maxTOI, solid)
	}
}

func castRayBall(radius float64, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	inside := origin.Norm() <= radius
	if inside && solid {
		return RayIntersection{Normal: insideHitNormal(dir)}, true
	}

	a := dir.Norm2()
	if a < 1e-30 {
		return RayIntersection{}, false
	}
	b := origin.Dot(dir)
	c := origin.Norm2() - radius*radius
	disc := b*b - a*c
	if disc < 0 {
		return RayIntersection{}, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / a
	if t < 0 || (inside && !solid) {
		t = (-b + sq) / a
	}
	if t < 0 || t > maxTOI {
		return RayIntersection{}, false
	}
	at := origin.Add(dir.Mul(t))
	return RayIntersection{TOI: t, Normal: spatialmath.SafeNormalize(at)}, true
}

func castRayCuboid(he r3.Vector, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	// axis and sign of the entry and exit faces
	enterAxis, exitAxis := -1, -1
	enterSign, exitSign := 1.0, 1.0

	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	h := [3]float64{he.X, he.Y, he.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-30 {
			if math.Abs(o[i]) > h[i] {
				return RayIntersection{}, false
			}
			continue
		}
		t1 := (-h[i] - o[i]) / d[i]
		t2 := (h[i] - o[i]) / d[i]
		sign := 1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = -1
		}
		if t1 > tmin {
			tmin = t1
			enterAxis = i
			enterSign = -sign
		}
		if t2 < tmax {
			tmax = t2
			exitAxis = i
			exitSign = sign
		}
	}
	if tmin > tmax || tmax < 0 {
		return RayIntersection{}, false
	}

	inside := tmin < 0
	if inside && solid {
		return RayIntersection{Normal: insideHitNormal(dir)}, true
	}
	t := tmin
	axis, sign := enterAxis, enterSign
	if inside {
		t = tmax
		axis, sign = exitAxis, exitSign
	}
	if t < 0 || t > maxTOI || axis < 0 {
		return RayIntersection{}, false
	}
	normal := r3.Vector{}
	switch axis {
	case 0:
		normal.X = sign
	case 1:
		normal.Y = sign
	case 2:
		normal.Z = sign
	}
	return RayIntersection{TOI: t, Normal: normal}, true
}

func castRayHalfSpace(normal, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	signed := origin.Dot(normal)
	denom := dir.Dot(normal)

	if signed <= 0 {
		if solid {
			return RayIntersection{Normal: normal}, true
		}
		// Boundary cast from inside: exits where the ray crosses the plane.
		if denom <= 1e-30 {
			return RayIntersection{}, false
		}
		t := -signed / denom
		if t > maxTOI {
			return RayIntersection{}, false
		}
		return RayIntersection{TOI: t, Normal: normal.Mul(-1)}, true
	}

	if denom >= -1e-30 {
		return RayIntersection{}, false
	}
	t := -signed / denom
	if t > maxTOI {
		return RayIntersection{}, false
	}
	return RayIntersection{TOI: t, Normal: normal}, true
}

// castRayTriangle is the Moller-Trumbore intersection, accepting hits on
// either side of the triangle.
func castRayTriangle(tri *shape.Triangle, origin, dir r3.Vector, maxTOI float64) (RayIntersection, bool) {
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < 1e-18 {
		return RayIntersection{}, false
	}
	inv := 1 / det
	tv := origin.Sub(tri.A)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return RayIntersection{}, false
	}
	q := tv.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return RayIntersection{}, false
	}
	t := e2.Dot(q) * inv
	if t < 0 || t > maxTOI {
		return RayIntersection{}, false
	}
	normal := spatialmath.SafeNormalize(e1.Cross(e2))
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}
	return RayIntersection{TOI: t, Normal: normal}, true
}

// castRayVoxels walks the ray across the voxel lattice cell by cell. Boundary
// casts only report crossings of exposed faces, so interior faces and faces
// covered by a stitched neighbor grid never count as hits.
func castRayVoxels(v *shape.Voxels, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	size := v.VoxelSize()
	if solid && v.IsFilled(voxelKeyAt(v, origin)) {
		return RayIntersection{
			Normal:  insideHitNormal(dir),
			Feature: Feature{Kind: FeatureFace, Index: voxelFeatureIndex(v, voxelKeyAt(v, origin))},
		}, true
	}

	lo, hi, ok := v.Bounds()
	if !ok {
		return RayIntersection{}, false
	}
	// Clip against the grid bounds padded by one empty cell layer, so the
	// walk always starts in free space when the origin is outside.
	boxLo := r3.Vector{X: float64(lo.X-1) * size.X, Y: float64(lo.Y-1) * size.Y, Z: float64(lo.Z-1) * size.Z}
	boxHi := r3.Vector{X: float64(hi.X+2) * size.X, Y: float64(hi.Y+2) * size.Y, Z: float64(hi.Z+2) * size.Z}
	tEnter, tExit, ok := raySlab(boxLo, boxHi, origin, dir)
	if !ok || tExit < 0 {
		return RayIntersection{}, false
	}
	tStart := math.Max(0, tEnter)
	tLimit := math.Min(maxTOI, tExit)
	if tStart > tLimit {
		return RayIntersection{}, false
	}

	cur := voxelKeyAt(v, origin.Add(dir.Mul(tStart+rayMarchTol)))
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	sz := [3]float64{size.X, size.Y, size.Z}
	key := [3]int32{cur.X, cur.Y, cur.Z}
	var step [3]int32
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = ((float64(key[i])+1)*sz[i] - o[i]) / d[i]
			tDelta[i] = sz[i] / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (float64(key[i])*sz[i] - o[i]) / d[i]
			tDelta[i] = sz[i] / -d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	maxSteps := int(hi.X-lo.X) + int(hi.Y-lo.Y) + int(hi.Z-lo.Z) + 9
	for s := 0; s < maxSteps; s++ {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		tCross := tMax[axis]
		if tCross > tLimit {
			return RayIntersection{}, false
		}
		next := [3]int32{key[0], key[1], key[2]}
		next[axis] += step[axis]
		curKey := shape.VoxelKey{X: key[0], Y: key[1], Z: key[2]}
		nextKey := shape.VoxelKey{X: next[0], Y: next[1], Z: next[2]}
		faceOut, faceIn := voxelCrossingFaces(axis, step[axis])

		if solid {
			if v.IsFilled(nextKey) {
				return RayIntersection{
					TOI:     tCross,
					Normal:  voxelAxisNormal(axis, -step[axis]),
					Feature: Feature{Kind: FeatureFace, Index: voxelFeatureIndex(v, nextKey)},
				}, true
			}
		} else {
			if v.IsFilled(curKey) && v.FreeFaces(curKey)&faceOut != 0 {
				return RayIntersection{
					TOI:     tCross,
					Normal:  voxelAxisNormal(axis, step[axis]),
					Feature: Feature{Kind: FeatureFace, Index: voxelFeatureIndex(v, curKey)},
				}, true
			}
			if v.IsFilled(nextKey) && v.FreeFaces(nextKey)&faceIn != 0 {
				return RayIntersection{
					TOI:     tCross,
					Normal:  voxelAxisNormal(axis, -step[axis]),
					Feature: Feature{Kind: FeatureFace, Index: voxelFeatureIndex(v, nextKey)},
				}, true
			}
		}

		key = next
		tMax[axis] += tDelta[axis]
	}
	return RayIntersection{}, false
}

func voxelKeyAt(v *shape.Voxels, pt r3.Vector) shape.VoxelKey {
	size := v.VoxelSize()
	return shape.VoxelKey{
		X: int32(math.Floor(pt.X / size.X)),
		Y: int32(math.Floor(pt.Y / size.Y)),
		Z: int32(math.Floor(pt.Z / size.Z)),
	}
}

// voxelCrossingFaces returns the face of the departed cell and the face of the
// entered cell for a crossing along axis in the given step direction.
func voxelCrossingFaces(axis int, step int32) (out, in shape.FaceMask) {
	switch axis {
	case 0:
		if step > 0 {
			return shape.FacePosX, shape.FaceNegX
		}
		return shape.FaceNegX, shape.FacePosX
	case 1:
		if step > 0 {
			return shape.FacePosY, shape.FaceNegY
		}
		return shape.FaceNegY, shape.FacePosY
	default:
		if step > 0 {
			return shape.FacePosZ, shape.FaceNegZ
		}
		return shape.FaceNegZ, shape.FacePosZ
	}
}

func voxelAxisNormal(axis int, sign int32) r3.Vector {
	s := float64(sign)
	switch axis {
	case 0:
		return r3.Vector{X: s}
	case 1:
		return r3.Vector{Y: s}
	default:
		return r3.Vector{Z: s}
	}
}

// voxelFeatureIndex maps a lattice key to its index in the deterministic
// Data() ordering, matching the feature indices reported by other queries.
func voxelFeatureIndex(v *shape.Voxels, key shape.VoxelKey) uint32 {
	data := v.Data()
	for i := 0; i+shape.PointStride <= len(data); i += shape.PointStride {
		if data[i] == key.X && data[i+1] == key.Y && data[i+2] == key.Z {
			return uint32(i / shape.PointStride)
		}
	}
	return 0
}

// raySlab clips the ray against an axis-aligned box and returns the entry and
// exit parameters. ok is false when the ray misses the box entirely.
func raySlab(lo, hi, origin, dir r3.Vector) (float64, float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	l := [3]float64{lo.X, lo.Y, lo.Z}
	h := [3]float64{hi.X, hi.Y, hi.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-30 {
			if o[i] < l[i] || o[i] > h[i] {
				return 0, 0, false
			}
			continue
		}
		t1 := (l[i] - o[i]) / d[i]
		t2 := (h[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	if tmin > tmax {
		return 0, 0, false
	}
	return tmin, tmax, true
}

func castRayComposite(s shape.Shape, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	best := RayIntersection{TOI: math.Inf(1)}
	found := false
	for _, piece := range decompose(s, spatialmath.NewZeroPose()) {
		pieceOrigin := piece.pose.InverseTransformPoint(origin)
		pieceDir := piece.pose.InverseRotateVector(dir)
		hit, ok := castRayLocal(piece.shape, pieceOrigin, pieceDir, maxTOI, solid)
		if !ok || hit.TOI >= best.TOI {
			continue
		}
		hit.Normal = piece.pose.RotateVector(hit.Normal)
		if hit.Feature.Kind == FeatureUnknown {
			hit.Feature = piece.feature
		}
		best = hit
		found = true
	}
	return best, found
}

// raySpan is the parameter interval a ray spends inside one volume piece of a
// compound. finite is false when the piece has no exit along the ray, as with
// a half-space part.
type raySpan struct {
	t0, t1 float64
	entry  RayIntersection
	exit   RayIntersection
	finite bool
}

// castRayUnionBoundary casts a boundary-mode ray against a compound as the
// union of its parts. Overlapping part intervals are merged, so a ray starting
// inside the overlap of several parts exits where it leaves the last of them
// rather than at the first interior part surface.
func castRayUnionBoundary(c *shape.Compound, origin, dir r3.Vector, maxTOI float64) (RayIntersection, bool) {
	var spans []raySpan
	var flats []RayIntersection
	for _, piece := range decompose(c, spatialmath.NewZeroPose()) {
		pieceOrigin := piece.pose.InverseTransformPoint(origin)
		pieceDir := piece.pose.InverseRotateVector(dir)
		if isVolume(piece.shape) {
			span, ok := rayVolumeSpan(piece.shape, pieceOrigin, pieceDir)
			if !ok {
				continue
			}
			span.entry.Normal = piece.pose.RotateVector(span.entry.Normal)
			span.exit.Normal = piece.pose.RotateVector(span.exit.Normal)
			if span.entry.Feature.Kind == FeatureUnknown {
				span.entry.Feature = piece.feature
			}
			if span.exit.Feature.Kind == FeatureUnknown {
				span.exit.Feature = piece.feature
			}
			spans = append(spans, span)
			continue
		}
		hit, ok := castRayLocal(piece.shape, pieceOrigin, pieceDir, math.Inf(1), false)
		if !ok {
			continue
		}
		hit.Normal = piece.pose.RotateVector(hit.Normal)
		if hit.Feature.Kind == FeatureUnknown {
			hit.Feature = piece.feature
		}
		flats = append(flats, hit)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].t0 < spans[j].t0 })
	var merged []raySpan
	for _, span := range spans {
		if len(merged) == 0 {
			merged = append(merged, span)
			continue
		}
		last := &merged[len(merged)-1]
		if !last.finite || span.t0 <= last.t1+rayMarchTol {
			if !last.finite {
				continue
			}
			if !span.finite || span.t1 > last.t1 {
				last.t1 = span.t1
				last.exit = span.exit
				last.finite = span.finite
			}
			continue
		}
		merged = append(merged, span)
	}

	best := RayIntersection{TOI: math.Inf(1)}
	found := false
	if len(merged) > 0 {
		first := merged[0]
		if first.t0 <= rayMarchTol {
			// Starting inside the union: the hit is where the ray leaves it.
			if first.finite {
				best = first.exit
				found = true
			}
		} else {
			best = first.entry
			found = true
		}
	}
	for _, flat := range flats {
		if flat.TOI >= best.TOI {
			continue
		}
		interior := false
		for _, span := range merged {
			if flat.TOI > span.t0+rayMarchTol && (!span.finite || flat.TOI < span.t1-rayMarchTol) {
				interior = true
				break
			}
		}
		if !interior {
			best = flat
			found = true
		}
	}
	if !found || best.TOI > maxTOI {
		return RayIntersection{}, false
	}
	return best, true
}

// isVolume reports whether a decomposed piece encloses volume. Flat pieces
// (segments, triangles) contribute surface crossings but no interval.
func isVolume(s shape.Shape) bool {
	switch s.(type) {
	case *shape.Ball, *shape.Cuboid, *shape.Capsule, *shape.Cylinder, *shape.Cone,
		*shape.ConvexPolyhedron, *shape.Round, *shape.HalfSpace:
		return true
	default:
		return false
	}
}

// rayVolumeSpan computes the interval the ray spends inside a convex volume
// piece, in the piece's local frame. ok is false when the ray never enters.
func rayVolumeSpan(s shape.Shape, origin, dir r3.Vector) (raySpan, bool) {
	span := raySpan{finite: true}
	if _, inside := projectLocal(s, origin); inside {
		span.entry = RayIntersection{Normal: insideHitNormal(dir)}
	} else {
		hit, ok := castRayLocal(s, origin, dir, math.Inf(1), false)
		if !ok {
			return raySpan{}, false
		}
		span.t0 = hit.TOI
		span.entry = hit
	}

	exitT := volumeExitTOI(s, origin, dir, span.t0)
	if math.IsInf(exitT, 1) {
		span.t1 = exitT
		span.finite = false
		return span, true
	}
	span.t1 = exitT
	at := origin.Add(dir.Mul(exitT))
	normal := outwardNormal(s, at)
	if normal.Norm() == 0 {
		normal = spatialmath.SafeNormalize(dir)
	}
	span.exit = RayIntersection{TOI: exitT, Normal: normal}
	return span, true
}

// volumeExitTOI finds where the ray leaves a convex volume it is inside of at
// tEnter. Half-spaces are handled analytically; other kinds bisect on the
// inside test, bounded by the shape's width along the ray.
func volumeExitTOI(s shape.Shape, origin, dir r3.Vector, tEnter float64) float64 {
	if hs, ok := s.(*shape.HalfSpace); ok {
		denom := dir.Dot(hs.Normal)
		if denom <= 1e-30 {
			return math.Inf(1)
		}
		return math.Max(tEnter, -origin.Dot(hs.Normal)/denom)
	}

	dirNorm := dir.Norm()
	if dirNorm < 1e-30 {
		return math.Inf(1)
	}
	unit := dir.Mul(1 / dirNorm)
	width := supportLocal(s, unit).Dot(unit) - supportLocal(s, unit.Mul(-1)).Dot(unit)
	lo := tEnter
	hi := tEnter + (width+1e-6)/dirNorm
	for i := 0; i < 64; i++ {
		mid := 0.5 * (lo + hi)
		if _, inside := projectLocal(s, origin.Add(dir.Mul(mid))); inside {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}

// castRayMarch is the fallback for convex kinds without an analytic routine.
// It sphere-traces along the ray with the unsigned distance to the boundary,
// which also resolves boundary-mode casts from inside the shape.
func castRayMarch(s shape.Shape, origin, dir r3.Vector, maxTOI float64, solid bool) (RayIntersection, bool) {
	dirNorm := dir.Norm()
	if dirNorm < 1e-30 {
		return RayIntersection{}, false
	}

	if _, inside := projectLocal(s, origin); inside && solid {
		return RayIntersection{Normal: insideHitNormal(dir)}, true
	}

	t := 0.0
	for step := 0; step < rayMarchMaxSteps; step++ {
		at := origin.Add(dir.Mul(t))
		dist, _ := distanceToBoundary(s, at)
		if dist <= rayMarchTol {
			return RayIntersection{TOI: t, Normal: boundaryNormal(s, at, dir)}, true
		}
		t += dist / dirNorm
		if t > maxTOI {
			return RayIntersection{}, false
		}
	}
	return RayIntersection{}, false
}

// boundaryNormal estimates the outward normal at a boundary point, oriented
// against the incoming ray.
func boundaryNormal(s shape.Shape, at, dir r3.Vector) r3.Vector {
	normal := outwardNormal(s, at)
	if normal.Norm() == 0 {
		return insideHitNormal(dir)
	}
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}
	return normal
}

// outwardNormal estimates the outward normal at a boundary point from the
// gradient of the signed distance. Zero on a degenerate gradient.
func outwardNormal(s shape.Shape, at r3.Vector) r3.Vector {
	const eps = 1e-6
	grad := r3.Vector{
		X: signedDistance(s, at.Add(r3.Vector{X: eps})) - signedDistance(s, at.Sub(r3.Vector{X: eps})),
		Y: signedDistance(s, at.Add(r3.Vector{Y: eps})) - signedDistance(s, at.Sub(r3.Vector{Y: eps})),
		Z: signedDistance(s, at.Add(r3.Vector{Z: eps})) - signedDistance(s, at.Sub(r3.Vector{Z: eps})),
	}
	return spatialmath.SafeNormalize(grad)
}

func signedDistance(s shape.Shape, pt r3.Vector) float64 {
	dist, inside := distanceToBoundary(s, pt)
	if inside {
		return -dist
	}
	return dist
}

// insideHitNormal is the normal reported for a time-zero hit from inside a
// solid shape, where no boundary was touched.
func insideHitNormal(dir r3.Vector) r3.Vector {
	n := spatialmath.SafeNormalize(dir.Mul(-1))
	if n.Norm() == 0 {
		return r3.Vector{X: 1}
	}
	return n
}
