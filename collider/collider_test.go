package collider

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

func TestCombineRules(t *testing.T) {
	test.That(t, CombineAverage.Combine(0.2, 0.6), test.ShouldAlmostEqual, 0.4, 1e-12)
	test.That(t, CombineMin.Combine(0.2, 0.6), test.ShouldEqual, 0.2)
	test.That(t, CombineMax.Combine(0.2, 0.6), test.ShouldEqual, 0.6)
	test.That(t, CombineMultiply.Combine(0.2, 0.6), test.ShouldAlmostEqual, 0.12, 1e-12)

	test.That(t, DecodeCombineRule(1), test.ShouldEqual, CombineMin)
	// unknown wire values fall back to averaging
	test.That(t, DecodeCombineRule(42), test.ShouldEqual, CombineAverage)
}

func TestDecodeActiveCollisionTypes(t *testing.T) {
	test.That(t, DecodeActiveCollisionTypes(uint16(CollisionDynamicFixed)), test.ShouldEqual, CollisionDynamicFixed)
	// undefined bits are dropped, all-unknown decodes to empty
	test.That(t, DecodeActiveCollisionTypes(0xffff), test.ShouldEqual, collisionTypesAll)
	test.That(t, DecodeActiveCollisionTypes(0x0010), test.ShouldEqual, ActiveCollisionTypes(0))
}

func TestColliderProperties(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{})
	c, err := st.Resolve(h)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, c.IsEnabled(), test.ShouldBeTrue)
	test.That(t, c.IsSensor(), test.ShouldBeFalse)
	test.That(t, c.CollisionGroups(), test.ShouldEqual, uint32(0xffffffff))

	c.SetFriction(-2)
	test.That(t, c.Friction(), test.ShouldEqual, 0.0)
	c.SetRestitution(0.8)
	test.That(t, c.Restitution(), test.ShouldEqual, 0.8)
	c.SetFrictionCombineRule(CombineMax)
	test.That(t, c.FrictionCombineRule(), test.ShouldEqual, CombineMax)
	c.SetSensor(true)
	test.That(t, c.IsSensor(), test.ShouldBeTrue)
	c.SetCollisionGroups(0x00010002)
	test.That(t, c.CollisionGroups(), test.ShouldEqual, uint32(0x00010002))
	c.SetActiveCollisionTypes(0x0010)
	test.That(t, c.ActiveCollisionTypesMask(), test.ShouldEqual, ActiveCollisionTypes(0))
}

func TestColliderMass(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{})
	c, err := st.Resolve(h)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, c.Volume(), test.ShouldAlmostEqual, 4.0/3.0*math.Pi, 1e-9)
	// default density 1: mass equals volume
	test.That(t, c.Mass(), test.ShouldAlmostEqual, c.Volume(), 1e-12)

	c.SetDensity(2)
	test.That(t, c.Mass(), test.ShouldAlmostEqual, 2*c.Volume(), 1e-9)

	c.SetMass(10)
	test.That(t, c.Mass(), test.ShouldEqual, 10.0)
	// setting density drops the explicit mass again
	c.SetDensity(1)
	test.That(t, c.Mass(), test.ShouldAlmostEqual, c.Volume(), 1e-12)

	c.SetMassProperties(MassProperties{Mass: 5, CenterOfMass: r3.Vector{X: 1}})
	test.That(t, c.Mass(), test.ShouldEqual, 5.0)

	// replacing the shape changes the derived volume
	cuboid, err := shape.NewCuboid(r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	c.SetShape(cuboid)
	c.SetDensity(1)
	test.That(t, c.Mass(), test.ShouldEqual, 8.0)
}

func TestColliderPoseEdits(t *testing.T) {
	st := newTestStore(t)
	h := insertBall(t, st, 1, r3.Vector{X: 1})
	c, err := st.Resolve(h)
	test.That(t, err, test.ShouldBeNil)

	c.SetTranslation(r3.Vector{X: 4})
	test.That(t, c.Pose().Point(), test.ShouldResemble, r3.Vector{X: 4})

	rot := quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)}
	c.SetRotation(rot)
	rotated := c.Pose().TransformPoint(r3.Vector{X: 1})
	test.That(t, rotated.Y, test.ShouldAlmostEqual, 1, 1e-9)

	// a zero quaternion cannot be normalized and leaves the pose alone
	before := c.Pose()
	c.SetRotation(quat.Number{})
	test.That(t, spatialmath.PoseAlmostEqual(c.Pose(), before, 1e-12), test.ShouldBeTrue)
}
