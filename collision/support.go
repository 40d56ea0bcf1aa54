package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// supportLocal returns the extreme point of a convex shape in the given
// direction, both in the shape's local frame. Only the convex kinds of the
// catalog have support functions; composite kinds are decomposed first and
// half-spaces are handled analytically by the callers.
func supportLocal(s shape.Shape, dir r3.Vector) r3.Vector {
	switch sh := s.(type) {
	case *shape.Ball:
		unit := spatialmath.SafeNormalize(dir)
		if unit.Norm() == 0 {
			unit = r3.Vector{X: 1}
		}
		return unit.Mul(sh.Radius)
	case *shape.Cuboid:
		return r3.Vector{
			X: math.Copysign(sh.HalfExtents.X, dir.X),
			Y: math.Copysign(sh.HalfExtents.Y, dir.Y),
			Z: math.Copysign(sh.HalfExtents.Z, dir.Z),
		}
	case *shape.Capsule:
		unit := spatialmath.SafeNormalize(dir)
		end := r3.Vector{Y: math.Copysign(sh.HalfHeight, dir.Y)}
		return end.Add(unit.Mul(sh.Radius))
	case *shape.Cylinder:
		radial := spatialmath.SafeNormalize(r3.Vector{X: dir.X, Z: dir.Z})
		return radial.Mul(sh.Radius).Add(r3.Vector{Y: math.Copysign(sh.HalfHeight, dir.Y)})
	case *shape.Cone:
		apex := r3.Vector{Y: sh.HalfHeight}
		radial := spatialmath.SafeNormalize(r3.Vector{X: dir.X, Z: dir.Z})
		rim := radial.Mul(sh.Radius).Add(r3.Vector{Y: -sh.HalfHeight})
		if dir.Dot(apex) >= dir.Dot(rim) {
			return apex
		}
		return rim
	case *shape.Segment:
		if dir.Dot(sh.A) >= dir.Dot(sh.B) {
			return sh.A
		}
		return sh.B
	case *shape.Triangle:
		best := sh.A
		if dir.Dot(sh.B) > dir.Dot(best) {
			best = sh.B
		}
		if dir.Dot(sh.C) > dir.Dot(best) {
			best = sh.C
		}
		return best
	case *shape.ConvexPolyhedron:
		points := sh.Points()
		best := points[0]
		bestDot := dir.Dot(best)
		for _, pt := range points[1:] {
			if d := dir.Dot(pt); d > bestDot {
				best = pt
				bestDot = d
			}
		}
		return best
	case *shape.Round:
		unit := spatialmath.SafeNormalize(dir)
		return supportLocal(sh.Inner, dir).Add(unit.Mul(sh.BorderRadius))
	default:
		return r3.Vector{}
	}
}

// supportWorld returns the world-space extreme point of a posed convex shape
// in a world-space direction.
func supportWorld(s shape.Shape, pose spatialmath.Pose, dir r3.Vector) r3.Vector {
	local := supportLocal(s, pose.InverseRotateVector(dir))
	return pose.TransformPoint(local)
}

// isConvex reports whether the shape kind has a support function.
func isConvex(s shape.Shape) bool {
	switch s.(type) {
	case *shape.Ball, *shape.Cuboid, *shape.Capsule, *shape.Cylinder, *shape.Cone,
		*shape.Segment, *shape.Triangle, *shape.ConvexPolyhedron, *shape.Round:
		return true
	default:
		return false
	}
}

// posedShape is one convex piece of a decomposed shape, with the pose mapping
// its local frame to world space and the feature index it came from.
type posedShape struct {
	shape   shape.Shape
	pose    spatialmath.Pose
	feature Feature
}

// decompose flattens a posed shape into convex pieces in world space.
// Convex kinds and half-spaces yield themselves; compounds recurse; meshes,
// polylines, height fields, and voxel grids yield one piece per primitive.
func decompose(s shape.Shape, pose spatialmath.Pose) []posedShape {
	switch sh := s.(type) {
	case *shape.Compound:
		var parts []posedShape
		for i, part := range sh.Parts {
			for _, piece := range decompose(part.Shape, spatialmath.Compose(pose, part.Pose)) {
				if piece.feature.Kind == FeatureUnknown {
					piece.feature = Feature{Kind: FeatureFace, Index: uint32(i)}
				}
				parts = append(parts, piece)
			}
		}
		return parts
	case *shape.TriMesh:
		points := sh.Points()
		parts := make([]posedShape, 0, len(sh.Triangles()))
		for i, tri := range sh.Triangles() {
			parts = append(parts, posedShape{
				shape:   shape.NewTriangle(points[tri[0]], points[tri[1]], points[tri[2]]),
				pose:    pose,
				feature: Feature{Kind: FeatureFace, Index: uint32(i)},
			})
		}
		return parts
	case *shape.Polyline:
		points := sh.Points()
		parts := make([]posedShape, 0, len(sh.Segments()))
		for i, seg := range sh.Segments() {
			parts = append(parts, posedShape{
				shape:   shape.NewSegment(points[seg[0]], points[seg[1]]),
				pose:    pose,
				feature: Feature{Kind: FeatureEdge, Index: uint32(i)},
			})
		}
		return parts
	case *shape.HeightField:
		parts := make([]posedShape, 0, sh.NRows()*sh.NCols()*2)
		for row := 0; row < sh.NRows(); row++ {
			for col := 0; col < sh.NCols(); col++ {
				t1, t2 := sh.CellTriangles(row, col)
				idx := uint32(2 * (row*sh.NCols() + col))
				parts = append(parts,
					posedShape{shape: &t1, pose: pose, feature: Feature{Kind: FeatureFace, Index: idx}},
					posedShape{shape: &t2, pose: pose, feature: Feature{Kind: FeatureFace, Index: idx + 1}},
				)
			}
		}
		return parts
	case *shape.Voxels:
		size := sh.VoxelSize()
		half := size.Mul(0.5)
		data := sh.Data()
		parts := make([]posedShape, 0, len(data)/shape.PointStride)
		for i := 0; i+shape.PointStride <= len(data); i += shape.PointStride {
			center := r3.Vector{
				X: (float64(data[i]) + 0.5) * size.X,
				Y: (float64(data[i+1]) + 0.5) * size.Y,
				Z: (float64(data[i+2]) + 0.5) * size.Z,
			}
			parts = append(parts, posedShape{
				shape:   &shape.Cuboid{HalfExtents: half},
				pose:    spatialmath.Compose(pose, spatialmath.NewPoseFromPoint(center)),
				feature: Feature{Kind: FeatureFace, Index: uint32(i / shape.PointStride)},
			})
		}
		return parts
	default:
		return []posedShape{{shape: s, pose: pose}}
	}
}
