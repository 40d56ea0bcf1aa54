package shape

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/kinemotion/geomkit/spatialmath"
)

func mustBall(t *testing.T, r float64) *Ball {
	t.Helper()
	b, err := NewBall(r)
	test.That(t, err, test.ShouldBeNil)
	return b
}

func sampleCatalog(t *testing.T) []Shape {
	t.Helper()
	cuboid, err := NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	capsule, err := NewCapsule(1, 0.5)
	test.That(t, err, test.ShouldBeNil)
	cylinder, err := NewCylinder(1, 0.5)
	test.That(t, err, test.ShouldBeNil)
	cone, err := NewCone(1, 0.5)
	test.That(t, err, test.ShouldBeNil)
	halfspace, err := NewHalfSpace(r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	polyline, err := NewPolyline([]float64{0, 0, 0, 1, 0, 0, 1, 1, 0}, nil)
	test.That(t, err, test.ShouldBeNil)
	trimesh, err := NewTriMesh([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2}, 0)
	test.That(t, err, test.ShouldBeNil)
	hull, err := NewConvexHull([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	hf, err := NewHeightField(1, 1, []float64{0, 0, 0, 0}, r3.Vector{X: 2, Y: 1, Z: 2}, 0)
	test.That(t, err, test.ShouldBeNil)
	voxels, err := NewVoxels(r3.Vector{X: 1, Y: 1, Z: 1}, []int32{0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	roundCuboid, err := NewRoundCuboid(1, 1, 1, 0.1)
	test.That(t, err, test.ShouldBeNil)
	compound, err := NewCompound([]CompoundPart{{Shape: mustBall(t, 1)}})
	test.That(t, err, test.ShouldBeNil)
	return []Shape{
		mustBall(t, 1), cuboid, capsule, cylinder, cone,
		NewSegment(r3.Vector{}, r3.Vector{X: 1, Y: 0, Z: 0}),
		NewTriangle(r3.Vector{}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0}),
		halfspace, polyline, trimesh, hull, hf, voxels, roundCuboid, compound,
	}
}

func TestAccessorsRefuseWrongKind(t *testing.T) {
	for _, s := range sampleCatalog(t) {
		before, hadRadius := Radius(s)
		if !hadRadius {
			SetRadius(s, 99)
			_, stillNone := Radius(s)
			test.That(t, stillNone, test.ShouldBeFalse)
		} else {
			SetRadius(s, before)
		}

		if _, ok := HalfExtents(s); !ok {
			SetHalfExtents(s, r3.Vector{X: 9, Y: 9, Z: 9})
			_, ok = HalfExtents(s)
			test.That(t, ok, test.ShouldBeFalse)
		}
		if _, ok := RoundRadius(s); !ok {
			SetRoundRadius(s, 42)
			_, ok = RoundRadius(s)
			test.That(t, ok, test.ShouldBeFalse)
		}
	}

	// a ball has no half height, half extents, or round radius
	ball := mustBall(t, 2)
	_, ok := HalfHeight(ball)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = HalfExtents(ball)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = RoundRadius(ball)
	test.That(t, ok, test.ShouldBeFalse)
	SetHalfHeight(ball, 3)
	r, _ := Radius(ball)
	test.That(t, r, test.ShouldEqual, 2)
}

func TestCuboidHalfExtentRoundTrip(t *testing.T) {
	cuboid, err := NewCuboid(r3.Vector{X: 2, Y: 3, Z: 4})
	test.That(t, err, test.ShouldBeNil)
	he, ok := HalfExtents(cuboid)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, he, test.ShouldResemble, r3.Vector{X: 2, Y: 3, Z: 4})

	SetHalfExtents(cuboid, r3.Vector{X: 1, Y: 1, Z: 1})
	he, ok = HalfExtents(cuboid)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, he, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
}

func TestRoundShapeDispatch(t *testing.T) {
	rc, err := NewRoundCylinder(2, 0.5, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rc.Type(), test.ShouldEqual, TypeRoundCylinder)

	// SetRadius reaches the inner cylinder, not the border radius
	SetRadius(rc, 0.75)
	r, ok := Radius(rc)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r, test.ShouldEqual, 0.75)
	border, ok := RoundRadius(rc)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, border, test.ShouldEqual, 0.1)

	SetHalfHeight(rc, 3)
	hh, ok := HalfHeight(rc)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hh, test.ShouldEqual, 3)

	SetRoundRadius(rc, 0.2)
	border, _ = RoundRadius(rc)
	test.That(t, border, test.ShouldEqual, 0.2)
	r, _ = Radius(rc)
	test.That(t, r, test.ShouldEqual, 0.75)

	// rounded cuboids share the half-extent accessor with bare cuboids
	rb, err := NewRoundCuboid(1, 2, 3, 0.05)
	test.That(t, err, test.ShouldBeNil)
	he, ok := HalfExtents(rb)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, he, test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	SetHalfExtents(rb, r3.Vector{X: 4, Y: 4, Z: 4})
	he, _ = HalfExtents(rb)
	test.That(t, he, test.ShouldResemble, r3.Vector{X: 4, Y: 4, Z: 4})

	_, err = NewRound(mustBall(t, 1), 0.1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCompoundNormalizesPartPoses(t *testing.T) {
	// a zero-value part pose carries a zero quaternion; the constructor turns
	// it into the identity so the part keeps its geometry
	parts := []CompoundPart{{Shape: mustBall(t, 1)}}
	compound, err := NewCompound(parts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, compound.Parts[0].Pose, test.ShouldResemble, spatialmath.NewZeroPose())

	// the caller's slice is left untouched
	test.That(t, parts[0].Pose, test.ShouldResemble, spatialmath.Pose{})

	// explicit poses survive normalization
	posed := spatialmath.NewPoseFromPoint(r3.Vector{X: 2})
	compound, err = NewCompound([]CompoundPart{{Pose: posed, Shape: mustBall(t, 1)}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, compound.Parts[0].Pose, test.ShouldResemble, posed)

	_, err = NewCompound([]CompoundPart{{Pose: posed}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRoundTypeOfHandBuiltShape(t *testing.T) {
	// bypassing NewRound with an inner kind that has no rounded variant
	// reports the inner kind
	r := &Round{Inner: mustBall(t, 1), BorderRadius: 0.1}
	test.That(t, r.Type(), test.ShouldEqual, TypeBall)
}

func TestVerticesAndIndices(t *testing.T) {
	seg := NewSegment(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 1, Y: 2, Z: 3})
	verts, ok := Vertices(seg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, verts, test.ShouldResemble, []float64{0, 0, 0, 1, 2, 3})
	_, ok = Indices(seg)
	test.That(t, ok, test.ShouldBeFalse)

	mesh, err := NewTriMesh([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1}, []uint32{0, 1, 2, 0, 2, 3}, 0)
	test.That(t, err, test.ShouldBeNil)
	verts, ok = Vertices(mesh)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(verts), test.ShouldEqual, 12)
	idx, ok := Indices(mesh)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldResemble, []uint32{0, 1, 2, 0, 2, 3})

	// polyline without explicit indices connects consecutive vertices
	polyline, err := NewPolyline([]float64{0, 0, 0, 1, 0, 0, 2, 0, 0}, nil)
	test.That(t, err, test.ShouldBeNil)
	idx, ok = Indices(polyline)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldResemble, []uint32{0, 1, 1, 2})

	// hulls built from bare points have no connectivity to report
	hull, err := NewConvexHull([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	_, ok = Indices(hull)
	test.That(t, ok, test.ShouldBeFalse)
	convexMesh, err := NewConvexMesh([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
	test.That(t, err, test.ShouldBeNil)
	idx, ok = Indices(convexMesh)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldResemble, []uint32{0, 1, 2})

	// non-polygonal shapes have neither vertices nor indices
	_, ok = Vertices(mustBall(t, 1))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestHeightFieldAccessors(t *testing.T) {
	heights := []float64{0, 1, 2, 3, 4, 5}
	hf, err := NewHeightField(1, 2, heights, r3.Vector{X: 4, Y: 1, Z: 2}, 0)
	test.That(t, err, test.ShouldBeNil)

	got, ok := HeightFieldHeights(hf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldResemble, heights)
	scale, ok := HeightFieldScale(hf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, scale, test.ShouldResemble, r3.Vector{X: 4, Y: 1, Z: 2})
	nrows, ok := HeightFieldNRows(hf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, nrows, test.ShouldEqual, 1)
	ncols, ok := HeightFieldNCols(hf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ncols, test.ShouldEqual, 2)

	_, ok = HeightFieldNRows(mustBall(t, 1))
	test.That(t, ok, test.ShouldBeFalse)

	_, err = NewHeightField(1, 1, []float64{0, 0}, r3.Vector{X: 1, Y: 1, Z: 1}, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFlagDecoding(t *testing.T) {
	test.That(t, DecodeMeshFlags(uint32(MeshOriented)), test.ShouldEqual, MeshOriented)
	test.That(t, DecodeMeshFlags(0xffff0000), test.ShouldEqual, MeshFlags(0))
	test.That(t, DecodeHeightFieldFlags(1), test.ShouldEqual, HeightFieldFixInternalEdges)
	test.That(t, DecodeHeightFieldFlags(0xff), test.ShouldEqual, HeightFieldFlags(0))
}

func TestConstructorsRejectNegativeDims(t *testing.T) {
	_, err := NewBall(-1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewCuboid(r3.Vector{X: 1, Y: -1, Z: 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewCapsule(-0.1, 1)
	test.That(t, err, test.ShouldNotBeNil)

	// zero dimensions are legal
	zero, err := NewBall(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zero.Radius, test.ShouldEqual, 0)

	// setters clamp instead of crashing
	SetRadius(zero, -5)
	r, _ := Radius(zero)
	test.That(t, r, test.ShouldEqual, 0)
}

func TestVolume(t *testing.T) {
	test.That(t, Volume(mustBall(t, 1)), test.ShouldAlmostEqual, 4.18879020478639, 1e-9)
	cuboid, _ := NewCuboid(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, Volume(cuboid), test.ShouldEqual, 48)
	test.That(t, Volume(NewSegment(r3.Vector{}, r3.Vector{X: 1, Y: 0, Z: 0})), test.ShouldEqual, 0)
}
