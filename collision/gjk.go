package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// GJK closest-point computation between two posed convex shapes. The simplex
// bookkeeping follows Ericson's Voronoi-region formulation; each simplex
// vertex keeps the pair of world-space support points that produced it so
// witness points can be recovered from the converged simplex.

const (
	gjkMaxIterations = 128
	gjkEps           = 1e-10
)

type minkowskiVertex struct {
	m r3.Vector // supportA - supportB
	a r3.Vector // support point on the first shape, world space
	b r3.Vector // support point on the second shape, world space
}

type gjkResult struct {
	dist         float64
	point1       r3.Vector
	point2       r3.Vector
	intersecting bool
}

func minkowskiSupport(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose, dir r3.Vector) minkowskiVertex {
	a := supportWorld(s1, p1, dir)
	b := supportWorld(s2, p2, dir.Mul(-1))
	return minkowskiVertex{m: a.Sub(b), a: a, b: b}
}

// gjkDistance computes the distance and closest points between two posed
// convex shapes. On intersection the witness points are meaningless and
// intersecting is true. The second return is false when the iteration failed
// to converge; callers policy-map that to their query's "inconclusive" value.
func gjkDistance(s1 shape.Shape, p1 spatialmath.Pose, s2 shape.Shape, p2 spatialmath.Pose) (gjkResult, bool) {
	dir := p2.Point().Sub(p1.Point())
	if dir.Norm2() < gjkEps {
		dir = r3.Vector{X: 1}
	}

	w := minkowskiSupport(s1, p1, s2, p2, dir)
	simplex := []minkowskiVertex{w}
	v := w.m

	for iter := 0; iter < gjkMaxIterations; iter++ {
		vv := v.Norm2()
		if vv < 1e-18 {
			return gjkResult{intersecting: true}, true
		}

		w = minkowskiSupport(s1, p1, s2, p2, v.Mul(-1))

		// No meaningful improvement possible: converged.
		if vv-v.Dot(w.m) <= gjkEps*vv {
			pt1, pt2 := witnessPoints(simplex, v)
			return gjkResult{dist: math.Sqrt(vv), point1: pt1, point2: pt2}, true
		}

		simplex = append(simplex, w)
		switch len(simplex) {
		case 2:
			v, simplex = closestOnSegment(simplex[0], simplex[1])
		case 3:
			v, simplex = closestOnTriangleSimplex(simplex[0], simplex[1], simplex[2])
		case 4:
			var inside bool
			v, simplex, inside = closestOnTetrahedron(simplex)
			if inside {
				return gjkResult{intersecting: true}, true
			}
		}
	}

	// Did not converge within budget.
	return gjkResult{}, false
}

// witnessPoints recovers the closest points on each shape from the reduced
// simplex and the closest point v on the Minkowski difference, by expressing
// v in barycentric coordinates over the simplex.
func witnessPoints(simplex []minkowskiVertex, v r3.Vector) (r3.Vector, r3.Vector) {
	switch len(simplex) {
	case 1:
		return simplex[0].a, simplex[0].b
	case 2:
		ab := simplex[1].m.Sub(simplex[0].m)
		denom := ab.Norm2()
		t := 0.0
		if denom > gjkEps {
			t = clamp01(v.Sub(simplex[0].m).Dot(ab) / denom)
		}
		return lerp(simplex[0].a, simplex[1].a, t), lerp(simplex[0].b, simplex[1].b, t)
	default:
		// Triangle: solve for barycentric coordinates of v.
		a, b, c := simplex[0].m, simplex[1].m, simplex[2].m
		v0, v1, v2 := b.Sub(a), c.Sub(a), v.Sub(a)
		d00 := v0.Norm2()
		d01 := v0.Dot(v1)
		d11 := v1.Norm2()
		d20 := v2.Dot(v0)
		d21 := v2.Dot(v1)
		denom := d00*d11 - d01*d01
		if math.Abs(denom) < gjkEps {
			return simplex[0].a, simplex[0].b
		}
		bv := (d11*d20 - d01*d21) / denom
		bw := (d00*d21 - d01*d20) / denom
		bu := 1 - bv - bw
		pt1 := simplex[0].a.Mul(bu).Add(simplex[1].a.Mul(bv)).Add(simplex[2].a.Mul(bw))
		pt2 := simplex[0].b.Mul(bu).Add(simplex[1].b.Mul(bv)).Add(simplex[2].b.Mul(bw))
		return pt1, pt2
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func lerp(a, b r3.Vector, t float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(t))
}

// closestOnSegment returns the closest point to the origin on the segment
// between two Minkowski vertices, with the reduced simplex.
func closestOnSegment(a, b minkowskiVertex) (r3.Vector, []minkowskiVertex) {
	ab := b.m.Sub(a.m)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return a.m, []minkowskiVertex{a}
	}
	t := a.m.Mul(-1).Dot(ab) / denom
	if t <= 0 {
		return a.m, []minkowskiVertex{a}
	}
	if t >= 1 {
		return b.m, []minkowskiVertex{b}
	}
	return a.m.Add(ab.Mul(t)), []minkowskiVertex{a, b}
}

// closestOnTriangleSimplex returns the closest point to the origin on the
// triangle spanned by three Minkowski vertices, with the reduced simplex.
// Voronoi-region walk from Ericson, "Real-Time Collision Detection".
func closestOnTriangleSimplex(a, b, c minkowskiVertex) (r3.Vector, []minkowskiVertex) {
	ab := b.m.Sub(a.m)
	ac := c.m.Sub(a.m)
	ao := a.m.Mul(-1)

	d1 := ab.Dot(ao)
	d2 := ac.Dot(ao)
	if d1 <= 0 && d2 <= 0 {
		return a.m, []minkowskiVertex{a}
	}

	bo := b.m.Mul(-1)
	d3 := ab.Dot(bo)
	d4 := ac.Dot(bo)
	if d3 >= 0 && d4 <= d3 {
		return b.m, []minkowskiVertex{b}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		return a.m.Add(ab.Mul(t)), []minkowskiVertex{a, b}
	}

	co := c.m.Mul(-1)
	d5 := ab.Dot(co)
	d6 := ac.Dot(co)
	if d6 >= 0 && d5 <= d6 {
		return c.m, []minkowskiVertex{c}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		return a.m.Add(ac.Mul(t)), []minkowskiVertex{a, c}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.m.Add(c.m.Sub(b.m).Mul(t)), []minkowskiVertex{b, c}
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.m.Add(ab.Mul(v)).Add(ac.Mul(w)), []minkowskiVertex{a, b, c}
}

// originInTetrahedron checks whether the origin lies on the interior side of
// every face of the tetrahedron.
func originInTetrahedron(pts []minkowskiVertex) bool {
	faces := [4][4]int{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	for _, f := range faces {
		p0, p1, p2 := pts[f[0]].m, pts[f[1]].m, pts[f[2]].m
		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		dOrigin := normal.Dot(p0.Mul(-1))
		dOpp := normal.Dot(pts[f[3]].m.Sub(p0))
		if dOrigin*dOpp < 0 {
			return false
		}
	}
	return true
}

// closestOnTetrahedron returns the closest point to the origin on the
// tetrahedron, the reduced simplex, and whether the origin is inside it.
func closestOnTetrahedron(pts []minkowskiVertex) (r3.Vector, []minkowskiVertex, bool) {
	if originInTetrahedron(pts) {
		return r3.Vector{}, pts, true
	}
	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	bestDist := math.Inf(1)
	var bestV r3.Vector
	var bestS []minkowskiVertex

	for _, f := range faces {
		v, s := closestOnTriangleSimplex(pts[f[0]], pts[f[1]], pts[f[2]])
		if d := v.Norm2(); d < bestDist {
			bestDist = d
			bestV = v
			bestS = s
		}
	}
	return bestV, bestS, false
}
