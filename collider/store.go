package collider

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/kinemotion/geomkit/collision"
	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// ErrStaleHandle is returned when a handle refers to a collider that was
// removed, or never existed. Queries do not degrade on a stale handle; the
// caller is holding a dangling reference and must be told.
var ErrStaleHandle = errors.New("stale collider handle")

// Handle addresses one collider in a Store. The generation changes every
// time a slot is reused, so handles to removed colliders stay invalid even
// when the slot holds a new collider.
type Handle struct {
	Index      uint32
	Generation uint32
}

type slot struct {
	collider   *Collider
	generation uint32
}

// Store owns colliders and resolves handles. It is not safe for concurrent
// use.
type Store struct {
	logger golog.Logger
	slots  []slot
	free   []uint32
}

// NewStore returns an empty collider store.
func NewStore(logger golog.Logger) *Store {
	return &Store{logger: logger}
}

// Len returns the number of live colliders.
func (st *Store) Len() int {
	return len(st.slots) - len(st.free)
}

// Insert adds a collider for the shape at the given world pose and returns
// its handle.
func (st *Store) Insert(s shape.Shape, pose spatialmath.Pose) Handle {
	c := newCollider(s, pose)
	if n := len(st.free); n > 0 {
		idx := st.free[n-1]
		st.free = st.free[:n-1]
		st.slots[idx].collider = c
		return Handle{Index: idx, Generation: st.slots[idx].generation}
	}
	st.slots = append(st.slots, slot{collider: c})
	return Handle{Index: uint32(len(st.slots) - 1)}
}

// Remove deletes the collider behind the handle. Removing through a stale
// handle is a no-op.
func (st *Store) Remove(h Handle) {
	if _, err := st.Resolve(h); err != nil {
		st.logger.Debugw("remove through stale handle ignored", "index", h.Index, "generation", h.Generation)
		return
	}
	st.slots[h.Index].collider = nil
	st.slots[h.Index].generation++
	st.free = append(st.free, h.Index)
}

// Resolve returns the collider behind the handle, or ErrStaleHandle.
func (st *Store) Resolve(h Handle) (*Collider, error) {
	if int(h.Index) >= len(st.slots) {
		return nil, errors.Wrapf(ErrStaleHandle, "index %d out of range", h.Index)
	}
	s := st.slots[h.Index]
	if s.collider == nil || s.generation != h.Generation {
		return nil, errors.Wrapf(ErrStaleHandle, "index %d generation %d", h.Index, h.Generation)
	}
	return s.collider, nil
}

// ResolvePair returns the two distinct colliders behind a pair of handles.
func (st *Store) ResolvePair(h1, h2 Handle) (*Collider, *Collider, error) {
	if h1 == h2 {
		return nil, nil, errors.New("collider pair must be two distinct handles")
	}
	c1, err := st.Resolve(h1)
	if err != nil {
		return nil, nil, err
	}
	c2, err := st.Resolve(h2)
	if err != nil {
		return nil, nil, err
	}
	return c1, c2, nil
}

// SetParent attaches the child collider to the parent and records the child's
// pose relative to it, recomputing the child's world pose.
func (st *Store) SetParent(child, parent Handle, poseWrtParent spatialmath.Pose) error {
	c, err := st.Resolve(child)
	if err != nil {
		return err
	}
	p, err := st.Resolve(parent)
	if err != nil {
		return err
	}
	c.parent = parent
	c.hasParent = true
	c.poseWrtParent = poseWrtParent
	c.pose = spatialmath.Compose(p.Pose(), poseWrtParent)
	return nil
}

// DetachParent detaches the collider from its parent, keeping its current
// world pose.
func (st *Store) DetachParent(h Handle) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	c.hasParent = false
	c.parent = Handle{}
	c.poseWrtParent = spatialmath.NewZeroPose()
	return nil
}

// RefreshPoseFromParent recomputes the collider's world pose after its
// parent moved.
func (st *Store) RefreshPoseFromParent(h Handle) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	if !c.hasParent {
		return nil
	}
	p, err := st.Resolve(c.parent)
	if err != nil {
		return err
	}
	c.pose = spatialmath.Compose(p.Pose(), c.poseWrtParent)
	return nil
}

// shape parameter facade

// ShapeRadius returns the radius of the collider's shape, false for kinds
// without one.
func (st *Store) ShapeRadius(h Handle) (float64, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return 0, false, err
	}
	r, ok := shape.Radius(c.shape)
	return r, ok, nil
}

// SetShapeRadius sets the radius of the collider's shape; a silent no-op for
// kinds without one.
func (st *Store) SetShapeRadius(h Handle, radius float64) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	shape.SetRadius(c.shape, radius)
	return nil
}

// ShapeHalfExtents returns the half-extents of the collider's shape, false
// for kinds without them.
func (st *Store) ShapeHalfExtents(h Handle) (r3.Vector, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return r3.Vector{}, false, err
	}
	he, ok := shape.HalfExtents(c.shape)
	return he, ok, nil
}

// SetShapeHalfExtents sets the half-extents of the collider's shape; a
// silent no-op for kinds without them.
func (st *Store) SetShapeHalfExtents(h Handle, he r3.Vector) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	shape.SetHalfExtents(c.shape, he)
	return nil
}

// ShapeHalfHeight returns the half-height of the collider's shape, false for
// kinds without one.
func (st *Store) ShapeHalfHeight(h Handle) (float64, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return 0, false, err
	}
	hh, ok := shape.HalfHeight(c.shape)
	return hh, ok, nil
}

// SetShapeHalfHeight sets the half-height of the collider's shape; a silent
// no-op for kinds without one.
func (st *Store) SetShapeHalfHeight(h Handle, hh float64) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	shape.SetHalfHeight(c.shape, hh)
	return nil
}

// SetVoxel edits one cell of a voxel collider; a silent no-op for other
// kinds.
func (st *Store) SetVoxel(h Handle, key shape.VoxelKey, filled bool) error {
	c, err := st.Resolve(h)
	if err != nil {
		return err
	}
	if v, ok := c.shape.(*shape.Voxels); ok {
		v.SetVoxel(key, filled)
	}
	return nil
}

// PropagateVoxelChange mirrors an edit of the first voxel collider into the
// second one's external-occupancy state.
func (st *Store) PropagateVoxelChange(h1, h2 Handle, key, shift shape.VoxelKey) error {
	c1, c2, err := st.ResolvePair(h1, h2)
	if err != nil {
		return err
	}
	shape.PropagateVoxelChangeShapes(c1.shape, c2.shape, key, shift)
	return nil
}

// CombineVoxelStates seeds both voxel colliders' external-occupancy state
// from each other's cells.
func (st *Store) CombineVoxelStates(h1, h2 Handle, shift shape.VoxelKey) error {
	c1, c2, err := st.ResolvePair(h1, h2)
	if err != nil {
		return err
	}
	shape.CombineVoxelStatesShapes(c1.shape, c2.shape, shift)
	return nil
}

// query facade

// CastRay casts a ray against the collider; the scalar result follows
// collision.CastRay.
func (st *Store) CastRay(h Handle, origin, dir r3.Vector, maxTOI float64, solid bool) (float64, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return collision.NoHit, err
	}
	return collision.CastRay(c.shape, c.pose, origin, dir, maxTOI, solid), nil
}

// CastRayAndGetNormal casts a ray against the collider, with the surface
// normal and feature on a hit.
func (st *Store) CastRayAndGetNormal(h Handle, origin, dir r3.Vector, maxTOI float64, solid bool) (collision.RayIntersection, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return collision.RayIntersection{}, false, err
	}
	hit, ok := collision.CastRayAndGetNormal(c.shape, c.pose, origin, dir, maxTOI, solid)
	return hit, ok, nil
}

// IntersectsRay reports whether the ray hits the collider at all.
func (st *Store) IntersectsRay(h Handle, origin, dir r3.Vector, maxTOI float64) (bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return false, err
	}
	return collision.IntersectsRay(c.shape, c.pose, origin, dir, maxTOI), nil
}

// ProjectPoint projects a world point onto the collider.
func (st *Store) ProjectPoint(h Handle, point r3.Vector, solid bool) (collision.PointProjection, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return collision.PointProjection{}, err
	}
	return collision.ProjectPoint(c.shape, c.pose, point, solid), nil
}

// ContainsPoint reports whether the collider contains a world point.
func (st *Store) ContainsPoint(h Handle, point r3.Vector) (bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return false, err
	}
	return collision.ContainsPoint(c.shape, c.pose, point), nil
}

// IntersectsShape reports whether the collider overlaps a free-standing
// posed shape.
func (st *Store) IntersectsShape(h Handle, s shape.Shape, pose spatialmath.Pose) (bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return false, err
	}
	return collision.Intersects(c.shape, c.pose, s, pose), nil
}

// ContactShape computes the contact between the collider and a free-standing
// posed shape within the prediction margin.
func (st *Store) ContactShape(h Handle, s shape.Shape, pose spatialmath.Pose, prediction float64) (collision.ShapeContact, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return collision.ShapeContact{}, false, err
	}
	contact, ok := collision.Contact(c.shape, c.pose, s, pose, prediction)
	return contact, ok, nil
}

// CastShape sweeps the collider against a free-standing posed shape.
func (st *Store) CastShape(
	h Handle, vel r3.Vector,
	s shape.Shape, pose spatialmath.Pose, shapeVel r3.Vector,
	opts collision.ShapeCastOptions,
) (collision.ShapeCastHit, bool, error) {
	c, err := st.Resolve(h)
	if err != nil {
		return collision.ShapeCastHit{}, false, err
	}
	hit, ok := collision.CastShapes(c.shape, c.pose, vel, s, pose, shapeVel, opts)
	return hit, ok, nil
}

// IntersectsCollider reports whether two colliders overlap.
func (st *Store) IntersectsCollider(h1, h2 Handle) (bool, error) {
	c1, c2, err := st.ResolvePair(h1, h2)
	if err != nil {
		return false, err
	}
	return collision.Intersects(c1.shape, c1.pose, c2.shape, c2.pose), nil
}

// ContactCollider computes the contact between two colliders within the
// prediction margin.
func (st *Store) ContactCollider(h1, h2 Handle, prediction float64) (collision.ShapeContact, bool, error) {
	c1, c2, err := st.ResolvePair(h1, h2)
	if err != nil {
		return collision.ShapeContact{}, false, err
	}
	contact, ok := collision.Contact(c1.shape, c1.pose, c2.shape, c2.pose, prediction)
	return contact, ok, nil
}

// CastCollider sweeps two colliders along linear velocities.
func (st *Store) CastCollider(h1 Handle, vel1 r3.Vector, h2 Handle, vel2 r3.Vector, opts collision.ShapeCastOptions) (collision.ShapeCastHit, bool, error) {
	c1, c2, err := st.ResolvePair(h1, h2)
	if err != nil {
		return collision.ShapeCastHit{}, false, err
	}
	hit, ok := collision.CastShapes(c1.shape, c1.pose, vel1, c2.shape, c2.pose, vel2, opts)
	return hit, ok, nil
}
