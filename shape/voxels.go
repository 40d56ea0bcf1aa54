package shape

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VoxelKey is an integer lattice coordinate inside a voxel grid.
type VoxelKey struct {
	X, Y, Z int32
}

// Add offsets the key by a lattice shift.
func (k VoxelKey) Add(shift VoxelKey) VoxelKey {
	return VoxelKey{X: k.X + shift.X, Y: k.Y + shift.Y, Z: k.Z + shift.Z}
}

// Sub offsets the key by the negated lattice shift.
func (k VoxelKey) Sub(shift VoxelKey) VoxelKey {
	return VoxelKey{X: k.X - shift.X, Y: k.Y - shift.Y, Z: k.Z - shift.Z}
}

// FaceMask marks which faces of a voxel are exposed (not covered by a filled
// neighbor, in this grid or in a stitched neighbor grid). Fully surrounded
// voxels have an empty mask and are skipped by the collision pipeline.
type FaceMask uint8

// Face bits, one per axis direction.
const (
	FaceNegX FaceMask = 1 << iota
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ

	// FaceAll is the mask of a voxel with no neighbors.
	FaceAll = FaceNegX | FacePosX | FaceNegY | FacePosY | FaceNegZ | FacePosZ
)

var faceNeighbors = [6]struct {
	shift VoxelKey
	self  FaceMask
	other FaceMask
}{
	{VoxelKey{X: -1}, FaceNegX, FacePosX},
	{VoxelKey{X: 1}, FacePosX, FaceNegX},
	{VoxelKey{Y: -1}, FaceNegY, FacePosY},
	{VoxelKey{Y: 1}, FacePosY, FaceNegY},
	{VoxelKey{Z: -1}, FaceNegZ, FacePosZ},
	{VoxelKey{Z: 1}, FacePosZ, FaceNegZ},
}

// Voxels is a sparse occupancy grid at a fixed voxel size. Besides its own
// cells, the grid tracks "external" cells: occupancy that belongs to an
// adjoining grid but abuts this one, kept in sync through
// PropagateVoxelChange and CombineVoxelStates so that boundary faces are
// masked consistently across stitched grids.
type Voxels struct {
	voxelSize r3.Vector
	cells     map[VoxelKey]struct{}
	external  map[VoxelKey]struct{}
}

// Type implements Shape.
func (v *Voxels) Type() Type { return TypeVoxels }

// NewVoxels builds a voxel grid from a flat stride-3 buffer of integer
// lattice coordinates. The voxel size must be positive on every axis and is
// fixed for the life of the shape.
func NewVoxels(voxelSize r3.Vector, gridCoords []int32) (*Voxels, error) {
	if voxelSize.X <= 0 || voxelSize.Y <= 0 || voxelSize.Z <= 0 {
		return nil, errors.New("voxel size must be positive on every axis")
	}
	if len(gridCoords)%PointStride != 0 {
		return nil, errors.Errorf("voxel coordinate buffer length %d is not a multiple of %d", len(gridCoords), PointStride)
	}
	v := &Voxels{
		voxelSize: voxelSize,
		cells:     make(map[VoxelKey]struct{}, len(gridCoords)/PointStride),
		external:  make(map[VoxelKey]struct{}),
	}
	for i := 0; i+PointStride <= len(gridCoords); i += PointStride {
		v.cells[VoxelKey{X: gridCoords[i], Y: gridCoords[i+1], Z: gridCoords[i+2]}] = struct{}{}
	}
	return v, nil
}

// NewVoxelsFromPoints quantizes a flat stride-3 point buffer onto the lattice,
// filling every voxel that contains at least one point.
func NewVoxelsFromPoints(voxelSize r3.Vector, points []float64) (*Voxels, error) {
	pts, err := pointsFromFlat(points)
	if err != nil {
		return nil, err
	}
	if voxelSize.X <= 0 || voxelSize.Y <= 0 || voxelSize.Z <= 0 {
		return nil, errors.New("voxel size must be positive on every axis")
	}
	v := &Voxels{
		voxelSize: voxelSize,
		cells:     make(map[VoxelKey]struct{}, len(pts)),
		external:  make(map[VoxelKey]struct{}),
	}
	for _, pt := range pts {
		v.cells[VoxelKey{
			X: int32(math.Floor(pt.X / voxelSize.X)),
			Y: int32(math.Floor(pt.Y / voxelSize.Y)),
			Z: int32(math.Floor(pt.Z / voxelSize.Z)),
		}] = struct{}{}
	}
	return v, nil
}

// VoxelSize returns the fixed per-axis voxel size.
func (v *Voxels) VoxelSize() r3.Vector { return v.voxelSize }

// IsFilled reports whether the grid's own cell at key is occupied.
func (v *Voxels) IsFilled(key VoxelKey) bool {
	_, ok := v.cells[key]
	return ok
}

// IsExternallyFilled reports whether a stitched neighbor grid is known to
// occupy the space at key (in this grid's lattice coordinates).
func (v *Voxels) IsExternallyFilled(key VoxelKey) bool {
	_, ok := v.external[key]
	return ok
}

// SetVoxel sets or clears occupancy at an integer lattice coordinate.
// Coordinates outside the current extent simply extend the grid. Setting a
// cell to its current state is a no-op.
func (v *Voxels) SetVoxel(key VoxelKey, filled bool) {
	if filled {
		v.cells[key] = struct{}{}
	} else {
		delete(v.cells, key)
	}
}

// FreeFaces returns the exposed-face mask of the cell at key, or zero if the
// cell is empty. A face is exposed when neither this grid nor a synced
// neighbor grid fills the adjacent cell.
func (v *Voxels) FreeFaces(key VoxelKey) FaceMask {
	if !v.IsFilled(key) {
		return 0
	}
	mask := FaceAll
	for _, n := range faceNeighbors {
		neighbor := key.Add(n.shift)
		if v.IsFilled(neighbor) || v.IsExternallyFilled(neighbor) {
			mask &^= n.self
		}
	}
	return mask
}

// Bounds returns the axis-aligned lattice bounds of the grid's own filled
// cells, inclusive on both ends. ok is false for an empty grid.
func (v *Voxels) Bounds() (VoxelKey, VoxelKey, bool) {
	if len(v.cells) == 0 {
		return VoxelKey{}, VoxelKey{}, false
	}
	first := true
	var lo, hi VoxelKey
	for key := range v.cells {
		if first {
			lo, hi = key, key
			first = false
			continue
		}
		lo.X = min32(lo.X, key.X)
		lo.Y = min32(lo.Y, key.Y)
		lo.Z = min32(lo.Z, key.Z)
		hi.X = max32(hi.X, key.X)
		hi.Y = max32(hi.Y, key.Y)
		hi.Z = max32(hi.Z, key.Z)
	}
	return lo, hi, true
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Data returns the filled lattice coordinates as a flat stride-3 buffer,
// sorted lexicographically for deterministic output.
func (v *Voxels) Data() []int32 {
	keys := make([]VoxelKey, 0, len(v.cells))
	for key := range v.cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	flat := make([]int32, 0, len(keys)*PointStride)
	for _, key := range keys {
		flat = append(flat, key.X, key.Y, key.Z)
	}
	return flat
}

// PropagateVoxelChange tells b about a change at coord in a's grid. The shift
// is b's lattice offset from a's, expressed in a's lattice units: the cell at
// a-coordinate c occupies the same space as b-coordinate c+shift. The effect
// on b's boundary state is the same as if b had been edited directly at the
// corresponding coordinate. Both shapes must be voxel grids; the collider
// facade guarantees that before calling.
func PropagateVoxelChange(a, b *Voxels, coord VoxelKey, shift VoxelKey) {
	mirrored := coord.Add(shift)
	if a.IsFilled(coord) {
		b.external[mirrored] = struct{}{}
	} else {
		delete(b.external, mirrored)
	}
}

// CombineVoxelStates merges the boundary knowledge of two stitched grids:
// every filled cell of each grid is registered as external occupancy in the
// other, at the given lattice offset (b's offset from a, in a's lattice
// units). Used once when two separately-built grids are joined; later edits
// go through PropagateVoxelChange.
func CombineVoxelStates(a, b *Voxels, shift VoxelKey) {
	for key := range a.cells {
		b.external[key.Add(shift)] = struct{}{}
	}
	for key := range b.cells {
		a.external[key.Sub(shift)] = struct{}{}
	}
}

// PropagateVoxelChangeShapes is the kind-checked form used by the collider
// facade: it is a no-op unless both shapes are currently voxel grids.
func PropagateVoxelChangeShapes(a, b Shape, coord VoxelKey, shift VoxelKey) {
	va, okA := a.(*Voxels)
	vb, okB := b.(*Voxels)
	if !okA || !okB {
		return
	}
	PropagateVoxelChange(va, vb, coord, shift)
}

// CombineVoxelStatesShapes is the kind-checked form used by the collider
// facade: it is a no-op unless both shapes are currently voxel grids.
func CombineVoxelStatesShapes(a, b Shape, shift VoxelKey) {
	va, okA := a.(*Voxels)
	vb, okB := b.(*Voxels)
	if !okA || !okB {
		return
	}
	CombineVoxelStates(va, vb, shift)
}

// VoxelData returns the filled coordinates of a voxel grid shape.
func VoxelData(s Shape) ([]int32, bool) {
	if sh, ok := s.(*Voxels); ok {
		return sh.Data(), true
	}
	return nil, false
}

// VoxelSizeOf returns the voxel size of a voxel grid shape.
func VoxelSizeOf(s Shape) (r3.Vector, bool) {
	if sh, ok := s.(*Voxels); ok {
		return sh.voxelSize, true
	}
	return r3.Vector{}, false
}
