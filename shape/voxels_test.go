package shape

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func newTestGrid(t *testing.T, coords ...int32) *Voxels {
	t.Helper()
	v, err := NewVoxels(r3.Vector{X: 1, Y: 1, Z: 1}, coords)
	test.That(t, err, test.ShouldBeNil)
	return v
}

func TestVoxelsConstruction(t *testing.T) {
	_, err := NewVoxels(r3.Vector{X: 0, Y: 1, Z: 1}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewVoxels(r3.Vector{X: 1, Y: 1, Z: 1}, []int32{0, 0})
	test.That(t, err, test.ShouldNotBeNil)

	v := newTestGrid(t, 0, 0, 0, 1, 0, 0)
	test.That(t, v.IsFilled(VoxelKey{0, 0, 0}), test.ShouldBeTrue)
	test.That(t, v.IsFilled(VoxelKey{1, 0, 0}), test.ShouldBeTrue)
	test.That(t, v.IsFilled(VoxelKey{2, 0, 0}), test.ShouldBeFalse)
	test.That(t, v.Data(), test.ShouldResemble, []int32{0, 0, 0, 1, 0, 0})

	size, ok := VoxelSizeOf(v)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, size, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
}

func TestVoxelsFromPoints(t *testing.T) {
	v, err := NewVoxelsFromPoints(r3.Vector{X: 1, Y: 1, Z: 1}, []float64{0.2, 0.9, 0.5, 0.4, 0.1, 0.6, 1.5, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	// the first two points land in the same voxel
	test.That(t, v.Data(), test.ShouldResemble, []int32{0, 0, 0, 1, 0, 0})
}

func TestSetVoxelIdempotent(t *testing.T) {
	v := newTestGrid(t)
	v.SetVoxel(VoxelKey{0, 0, 0}, true)
	v.SetVoxel(VoxelKey{0, 0, 0}, true)
	test.That(t, v.Data(), test.ShouldResemble, []int32{0, 0, 0})

	// out-of-range coordinates just extend the grid
	v.SetVoxel(VoxelKey{1000, -1000, 3}, true)
	test.That(t, v.IsFilled(VoxelKey{1000, -1000, 3}), test.ShouldBeTrue)

	v.SetVoxel(VoxelKey{0, 0, 0}, false)
	v.SetVoxel(VoxelKey{0, 0, 0}, false)
	test.That(t, v.IsFilled(VoxelKey{0, 0, 0}), test.ShouldBeFalse)
}

func TestFreeFaces(t *testing.T) {
	v := newTestGrid(t, 0, 0, 0)
	test.That(t, v.FreeFaces(VoxelKey{0, 0, 0}), test.ShouldEqual, FaceAll)
	test.That(t, v.FreeFaces(VoxelKey{5, 5, 5}), test.ShouldEqual, FaceMask(0))

	v.SetVoxel(VoxelKey{1, 0, 0}, true)
	test.That(t, v.FreeFaces(VoxelKey{0, 0, 0})&FacePosX, test.ShouldEqual, FaceMask(0))
	test.That(t, v.FreeFaces(VoxelKey{1, 0, 0})&FaceNegX, test.ShouldEqual, FaceMask(0))
	test.That(t, v.FreeFaces(VoxelKey{0, 0, 0})&FaceNegX, test.ShouldNotEqual, FaceMask(0))
}

func TestPropagateVoxelChange(t *testing.T) {
	a := newTestGrid(t)
	b := newTestGrid(t, 2, 0, 0)
	shift := VoxelKey{X: 1}

	a.SetVoxel(VoxelKey{0, 0, 0}, true)
	PropagateVoxelChange(a, b, VoxelKey{0, 0, 0}, shift)

	// b now knows the space at its lattice coordinate (1,0,0) is occupied
	test.That(t, b.IsExternallyFilled(VoxelKey{1, 0, 0}), test.ShouldBeTrue)
	// so b's own cell at (2,0,0) no longer exposes its -X face
	test.That(t, b.FreeFaces(VoxelKey{2, 0, 0})&FaceNegX, test.ShouldEqual, FaceMask(0))

	// matches editing b directly at the corresponding coordinate
	direct := newTestGrid(t, 2, 0, 0)
	direct.SetVoxel(VoxelKey{1, 0, 0}, true)
	test.That(t, direct.FreeFaces(VoxelKey{2, 0, 0})&FaceNegX, test.ShouldEqual, FaceMask(0))

	// clearing the voxel propagates the clear
	a.SetVoxel(VoxelKey{0, 0, 0}, false)
	PropagateVoxelChange(a, b, VoxelKey{0, 0, 0}, shift)
	test.That(t, b.IsExternallyFilled(VoxelKey{1, 0, 0}), test.ShouldBeFalse)
	test.That(t, b.FreeFaces(VoxelKey{2, 0, 0})&FaceNegX, test.ShouldNotEqual, FaceMask(0))
}

func TestCombineVoxelStates(t *testing.T) {
	a := newTestGrid(t, 0, 0, 0)
	b := newTestGrid(t, 0, 0, 0) // physically at a-lattice (1,0,0)
	shift := VoxelKey{X: -1}     // a-coordinate c maps to b-coordinate c-1

	CombineVoxelStates(a, b, shift)

	test.That(t, b.IsExternallyFilled(VoxelKey{-1, 0, 0}), test.ShouldBeTrue)
	test.That(t, a.IsExternallyFilled(VoxelKey{1, 0, 0}), test.ShouldBeTrue)
	// the stitched faces are now interior on both sides
	test.That(t, a.FreeFaces(VoxelKey{0, 0, 0})&FacePosX, test.ShouldEqual, FaceMask(0))
	test.That(t, b.FreeFaces(VoxelKey{0, 0, 0})&FaceNegX, test.ShouldEqual, FaceMask(0))
	// other faces stay exposed
	test.That(t, a.FreeFaces(VoxelKey{0, 0, 0})&FaceNegX, test.ShouldNotEqual, FaceMask(0))
}

func TestVoxelShapeWrappersRequireVoxels(t *testing.T) {
	a := newTestGrid(t, 0, 0, 0)
	ball, err := NewBall(1)
	test.That(t, err, test.ShouldBeNil)

	// mixed kinds: silent no-op
	PropagateVoxelChangeShapes(a, ball, VoxelKey{}, VoxelKey{X: 1})
	CombineVoxelStatesShapes(ball, a, VoxelKey{X: 1})
	test.That(t, a.IsExternallyFilled(VoxelKey{1, 0, 0}), test.ShouldBeFalse)

	b := newTestGrid(t)
	PropagateVoxelChangeShapes(a, b, VoxelKey{0, 0, 0}, VoxelKey{X: 1})
	test.That(t, b.IsExternallyFilled(VoxelKey{1, 0, 0}), test.ShouldBeTrue)

	_, ok := VoxelData(ball)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = VoxelSizeOf(ball)
	test.That(t, ok, test.ShouldBeFalse)
}
