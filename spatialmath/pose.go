// Package spatialmath defines the rigid transforms used to place shapes in world space.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is an isometry: a unit rotation quaternion followed by a translation.
// Poses are immutable values; operations return new poses. The zero value of
// this struct carries a zero quaternion and is not a valid pose, use
// NewZeroPose instead.
type Pose struct {
	rotation    quat.Number
	translation r3.Vector
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{rotation: quat.Number{Real: 1}}
}

// NewPoseFromPoint returns a pose with the given translation and no rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{rotation: quat.Number{Real: 1}, translation: pt}
}

// NewPose returns a pose with the given translation and rotation. The
// quaternion is normalized; a degenerate (zero) quaternion yields the
// identity rotation, so callers that must treat a zero quaternion as a no-op
// should check NormalizeQuat themselves first.
func NewPose(pt r3.Vector, rot quat.Number) Pose {
	normalized, ok := NormalizeQuat(rot)
	if !ok {
		normalized = quat.Number{Real: 1}
	}
	return Pose{rotation: normalized, translation: pt}
}

// NewPoseFromQuaternion returns a rotation-only pose.
func NewPoseFromQuaternion(rot quat.Number) Pose {
	return NewPose(r3.Vector{}, rot)
}

// Point returns the translation component of the pose.
func (p Pose) Point() r3.Vector {
	return p.translation
}

// Rotation returns the unit rotation quaternion of the pose.
func (p Pose) Rotation() quat.Number {
	return p.rotation
}

// WithPoint returns a copy of the pose with the translation replaced.
func (p Pose) WithPoint(pt r3.Vector) Pose {
	p.translation = pt
	return p
}

// WithRotation returns a copy of the pose with the rotation replaced. A zero
// quaternion leaves the pose unchanged.
func (p Pose) WithRotation(rot quat.Number) Pose {
	if normalized, ok := NormalizeQuat(rot); ok {
		p.rotation = normalized
	}
	return p
}

// Compose returns the pose equivalent to applying b first, then a.
func Compose(a, b Pose) Pose {
	return Pose{
		rotation:    quat.Mul(a.rotation, b.rotation),
		translation: a.TransformPoint(b.translation),
	}
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.rotation)
	return Pose{
		rotation:    inv,
		translation: QuatRotate(inv, p.translation.Mul(-1)),
	}
}

// PoseBetween returns the pose of b relative to a, i.e. the pose x such that
// Compose(a, x) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint maps a point from the pose's local frame to the world frame.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return QuatRotate(p.rotation, pt).Add(p.translation)
}

// InverseTransformPoint maps a world-frame point into the pose's local frame.
func (p Pose) InverseTransformPoint(pt r3.Vector) r3.Vector {
	return QuatRotate(quat.Conj(p.rotation), pt.Sub(p.translation))
}

// RotateVector applies only the rotation component to a direction vector.
func (p Pose) RotateVector(v r3.Vector) r3.Vector {
	return QuatRotate(p.rotation, v)
}

// InverseRotateVector applies the inverse rotation to a direction vector.
func (p Pose) InverseRotateVector(v r3.Vector) r3.Vector {
	return QuatRotate(quat.Conj(p.rotation), v)
}

// QuatRotate rotates vector v by unit quaternion q, computing q*v*conj(q).
func QuatRotate(q quat.Number, v r3.Vector) r3.Vector {
	qv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(q, qv), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// NormalizeQuat scales q to unit length. The second return is false if q is
// too close to zero to normalize.
func NormalizeQuat(q quat.Number) (quat.Number, bool) {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if norm < 1e-12 {
		return quat.Number{}, false
	}
	return quat.Scale(1/norm, q), true
}

// PoseAlmostEqual returns whether two poses agree to within epsilon on both
// translation and rotation. Quaternions q and -q describe the same rotation
// and compare equal here.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	if !R3VectorAlmostEqual(a.translation, b.translation, epsilon) {
		return false
	}
	d := quat.Mul(quat.Conj(a.rotation), b.rotation)
	return math.Abs(math.Abs(d.Real)-1) < epsilon
}
