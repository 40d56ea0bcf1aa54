package collider

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/kinemotion/geomkit/collision"
	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(golog.NewTestLogger(t))
}

func insertBall(t *testing.T, st *Store, radius float64, at r3.Vector) Handle {
	t.Helper()
	b, err := shape.NewBall(radius)
	test.That(t, err, test.ShouldBeNil)
	return st.Insert(b, spatialmath.NewPoseFromPoint(at))
}

func TestStoreInsertResolveRemove(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{})
	test.That(t, st.Len(), test.ShouldEqual, 1)

	c, err := st.Resolve(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Label(), test.ShouldNotBeEmpty)

	st.Remove(h)
	test.That(t, st.Len(), test.ShouldEqual, 0)
	_, err = st.Resolve(h)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)

	// double remove is a logged no-op
	st.Remove(h)
	test.That(t, st.Len(), test.ShouldEqual, 0)
}

func TestStoreHandleGenerations(t *testing.T) {
	st := newTestStore(t)
	h1 := insertBall(t, st, 1, r3.Vector{})
	st.Remove(h1)

	// the slot is reused but the old handle stays dead
	h2 := insertBall(t, st, 2, r3.Vector{})
	test.That(t, h2.Index, test.ShouldEqual, h1.Index)
	test.That(t, h2.Generation, test.ShouldNotEqual, h1.Generation)

	_, err := st.Resolve(h1)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
	c, err := st.Resolve(h2)
	test.That(t, err, test.ShouldBeNil)
	r, ok := shape.Radius(c.Shape())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r, test.ShouldEqual, 2.0)

	_, err = st.Resolve(Handle{Index: 99})
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
}

func TestResolvePair(t *testing.T) {
	st := newTestStore(t)
	h1 := insertBall(t, st, 1, r3.Vector{})
	h2 := insertBall(t, st, 1, r3.Vector{X: 5})

	_, _, err := st.ResolvePair(h1, h1)
	test.That(t, err, test.ShouldNotBeNil)

	c1, c2, err := st.ResolvePair(h1, h2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c1, test.ShouldNotEqual, c2)

	// a stale second handle is an error, not a degraded result
	st.Remove(h2)
	_, _, err = st.ResolvePair(h1, h2)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
	_, err = st.IntersectsCollider(h1, h2)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
}

func TestSetParentKeepsPosesConsistent(t *testing.T) {
	st := newTestStore(t)
	parent := insertBall(t, st, 1, r3.Vector{X: 10})
	child := insertBall(t, st, 0.5, r3.Vector{})

	err := st.SetParent(child, parent, spatialmath.NewPoseFromPoint(r3.Vector{Y: 2}))
	test.That(t, err, test.ShouldBeNil)

	c, err := st.Resolve(child)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Pose().Point(), test.ShouldResemble, r3.Vector{X: 10, Y: 2})

	// moving the parent and refreshing follows it
	p, err := st.Resolve(parent)
	test.That(t, err, test.ShouldBeNil)
	p.SetTranslation(r3.Vector{X: 20})
	err = st.RefreshPoseFromParent(child)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Pose().Point(), test.ShouldResemble, r3.Vector{X: 20, Y: 2})

	err = st.DetachParent(child)
	test.That(t, err, test.ShouldBeNil)
	_, attached := c.Parent()
	test.That(t, attached, test.ShouldBeFalse)
	test.That(t, c.Pose().Point(), test.ShouldResemble, r3.Vector{X: 20, Y: 2})
}

func TestShapeParamFacade(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{})

	r, ok, err := st.ShapeRadius(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, r, test.ShouldEqual, 1.0)

	err = st.SetShapeRadius(h, 3)
	test.That(t, err, test.ShouldBeNil)
	r, _, err = st.ShapeRadius(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r, test.ShouldEqual, 3.0)

	// wrong kind: no value, no error
	_, ok, err = st.ShapeHalfExtents(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	st.Remove(h)
	_, _, err = st.ShapeRadius(h)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
}

func TestVoxelFacade(t *testing.T) {
	st := newTestStore(t)
	g1, err := shape.NewVoxels(r3.Vector{X: 1, Y: 1, Z: 1}, nil)
	test.That(t, err, test.ShouldBeNil)
	g2, err := shape.NewVoxels(r3.Vector{X: 1, Y: 1, Z: 1}, []int32{2, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	h1 := st.Insert(g1, spatialmath.NewZeroPose())
	h2 := st.Insert(g2, spatialmath.NewZeroPose())

	err = st.SetVoxel(h1, shape.VoxelKey{}, true)
	test.That(t, err, test.ShouldBeNil)
	err = st.PropagateVoxelChange(h1, h2, shape.VoxelKey{}, shape.VoxelKey{X: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g2.IsExternallyFilled(shape.VoxelKey{X: 1}), test.ShouldBeTrue)

	err = st.CombineVoxelStates(h1, h2, shape.VoxelKey{X: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g1.IsExternallyFilled(shape.VoxelKey{X: 1}), test.ShouldBeTrue)
}

func TestStoreQueryFacade(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{X: 10})

	toi, err := st.CastRay(h, r3.Vector{}, r3.Vector{X: 1}, 100, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, toi, test.ShouldAlmostEqual, 9, 1e-9)

	hit, ok, err := st.CastRayAndGetNormal(h, r3.Vector{}, r3.Vector{X: 1}, 100, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, toi, 1e-9)

	hits, err := st.IntersectsRay(h, r3.Vector{}, r3.Vector{X: 1}, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hits, test.ShouldBeTrue)

	proj, err := st.ProjectPoint(h, r3.Vector{X: 13}, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, proj.Point.X, test.ShouldAlmostEqual, 11, 1e-9)

	contains, err := st.ContainsPoint(h, r3.Vector{X: 10.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, contains, test.ShouldBeTrue)

	other, err := shape.NewBall(1)
	test.That(t, err, test.ShouldBeNil)
	overlaps, err := st.IntersectsShape(h, other, spatialmath.NewPoseFromPoint(r3.Vector{X: 11.5}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, overlaps, test.ShouldBeTrue)

	contact, ok, err := st.ContactShape(h, other, spatialmath.NewPoseFromPoint(r3.Vector{X: 12.05}), 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, contact.Dist, test.ShouldAlmostEqual, 0.05, 1e-9)

	castHit, ok, err := st.CastShape(h, r3.Vector{}, other,
		spatialmath.NewPoseFromPoint(r3.Vector{X: 20}), r3.Vector{X: -1},
		collision.ShapeCastOptions{MaxTOI: 100})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, castHit.TOI, test.ShouldAlmostEqual, 8, 1e-6)
}

func TestStoreColliderPairQueries(t *testing.T) {
	st := newTestStore(t)
	h1 := insertBall(t, st, 1, r3.Vector{})
	h2 := insertBall(t, st, 1, r3.Vector{X: 2.05})

	overlaps, err := st.IntersectsCollider(h1, h2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, overlaps, test.ShouldBeFalse)

	contact, ok, err := st.ContactCollider(h1, h2, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, contact.Dist, test.ShouldAlmostEqual, 0.05, 1e-9)

	hit, ok, err := st.CastCollider(h1, r3.Vector{}, h2, r3.Vector{X: -1}, collision.ShapeCastOptions{MaxTOI: 100})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.TOI, test.ShouldAlmostEqual, 0.05, 1e-6)
}
