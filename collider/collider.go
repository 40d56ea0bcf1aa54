// Package collider wraps the shape catalog and the query engine behind
// stable generational handles. A Store owns a set of colliders; every
// operation on a collider goes through its handle, and handles to removed
// colliders are detected rather than silently reusing slots.
package collider

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// CombineRule selects how two colliders' friction or restitution
// coefficients merge into one contact coefficient.
type CombineRule int

// Combine rules, in wire order.
const (
	CombineAverage CombineRule = iota
	CombineMin
	CombineMultiply
	CombineMax
)

// DecodeCombineRule maps a wire value to a CombineRule; unknown values fall
// back to CombineAverage.
func DecodeCombineRule(raw uint32) CombineRule {
	switch r := CombineRule(raw); r {
	case CombineAverage, CombineMin, CombineMultiply, CombineMax:
		return r
	default:
		return CombineAverage
	}
}

// Combine merges two coefficients under the rule.
func (r CombineRule) Combine(a, b float64) float64 {
	switch r {
	case CombineMin:
		if a < b {
			return a
		}
		return b
	case CombineMultiply:
		return a * b
	case CombineMax:
		if a > b {
			return a
		}
		return b
	default:
		return (a + b) / 2
	}
}

// ActiveCollisionTypes is a bit mask of the rigid-body type pairs a collider
// generates contacts for.
type ActiveCollisionTypes uint16

// Active collision type bits.
const (
	CollisionDynamicDynamic     ActiveCollisionTypes = 0x0001
	CollisionDynamicKinematic   ActiveCollisionTypes = 0x000c
	CollisionDynamicFixed       ActiveCollisionTypes = 0x0002
	CollisionKinematicKinematic ActiveCollisionTypes = 0x8800
	CollisionKinematicFixed     ActiveCollisionTypes = 0x2200
	CollisionFixedFixed         ActiveCollisionTypes = 0x0040

	collisionTypesAll = CollisionDynamicDynamic | CollisionDynamicKinematic |
		CollisionDynamicFixed | CollisionKinematicKinematic |
		CollisionKinematicFixed | CollisionFixedFixed
)

// DecodeActiveCollisionTypes masks off undefined bits; a value made entirely
// of unknown bits decodes to the empty set.
func DecodeActiveCollisionTypes(raw uint16) ActiveCollisionTypes {
	return ActiveCollisionTypes(raw) & collisionTypesAll
}

// MassProperties is the inertial description of a collider, local to it.
type MassProperties struct {
	Mass             float64
	CenterOfMass     r3.Vector
	PrincipalInertia r3.Vector
}

// Collider is one posed shape with its contact material and filtering state.
// Colliders are created through Store.Insert and addressed by handle.
type Collider struct {
	label string

	shape shape.Shape
	pose  spatialmath.Pose

	// set when the collider is attached to a parent body
	parent        Handle
	hasParent     bool
	poseWrtParent spatialmath.Pose

	friction              float64
	restitution           float64
	frictionCombine       CombineRule
	restitutionCombine    CombineRule
	density               float64
	explicitMass          *MassProperties
	contactSkin           float64
	contactForceThreshold float64
	collisionGroups       uint32
	solverGroups          uint32
	activeHooks           uint32
	activeEvents          uint32
	activeCollisionTypes  ActiveCollisionTypes
	sensor                bool
	enabled               bool
}

func newCollider(s shape.Shape, pose spatialmath.Pose) *Collider {
	return &Collider{
		label:                uuid.NewString(),
		shape:                s,
		pose:                 pose,
		friction:             0.5,
		density:              1,
		collisionGroups:      0xffffffff,
		solverGroups:         0xffffffff,
		activeCollisionTypes: CollisionDynamicDynamic | CollisionDynamicKinematic | CollisionDynamicFixed,
		enabled:              true,
	}
}

// Label returns the collider's identifying label, a fresh UUID by default.
func (c *Collider) Label() string { return c.label }

// SetLabel overrides the generated label.
func (c *Collider) SetLabel(label string) { c.label = label }

// Shape returns the collider's current shape.
func (c *Collider) Shape() shape.Shape { return c.shape }

// SetShape replaces the collider's shape wholesale.
func (c *Collider) SetShape(s shape.Shape) { c.shape = s }

// Pose returns the collider's world pose.
func (c *Collider) Pose() spatialmath.Pose { return c.pose }

// SetPose replaces the collider's world pose.
func (c *Collider) SetPose(pose spatialmath.Pose) { c.pose = pose }

// SetTranslation moves the collider, keeping its rotation.
func (c *Collider) SetTranslation(pt r3.Vector) { c.pose = c.pose.WithPoint(pt) }

// SetRotation re-orients the collider, keeping its translation. A zero
// quaternion cannot be normalized and leaves the pose untouched.
func (c *Collider) SetRotation(rot quat.Number) { c.pose = c.pose.WithRotation(rot) }

// Parent returns the handle of the collider's parent body, if attached.
func (c *Collider) Parent() (Handle, bool) { return c.parent, c.hasParent }

// PoseWrtParent returns the collider's pose relative to its parent, if
// attached.
func (c *Collider) PoseWrtParent() (spatialmath.Pose, bool) {
	return c.poseWrtParent, c.hasParent
}

// SetPoseWrtParent updates the collider's pose relative to its parent and
// keeps the world pose consistent with the parent's pose.
func (c *Collider) SetPoseWrtParent(parentPose, poseWrtParent spatialmath.Pose) {
	if !c.hasParent {
		return
	}
	c.poseWrtParent = poseWrtParent
	c.pose = spatialmath.Compose(parentPose, poseWrtParent)
}

// Friction returns the friction coefficient.
func (c *Collider) Friction() float64 { return c.friction }

// SetFriction sets the friction coefficient; negative values clamp to zero.
func (c *Collider) SetFriction(v float64) { c.friction = clampNonNegative(v) }

// Restitution returns the restitution coefficient.
func (c *Collider) Restitution() float64 { return c.restitution }

// SetRestitution sets the restitution coefficient; negative values clamp to
// zero.
func (c *Collider) SetRestitution(v float64) { c.restitution = clampNonNegative(v) }

// FrictionCombineRule returns the rule used to merge friction with another
// collider's.
func (c *Collider) FrictionCombineRule() CombineRule { return c.frictionCombine }

// SetFrictionCombineRule sets the friction merge rule.
func (c *Collider) SetFrictionCombineRule(r CombineRule) { c.frictionCombine = r }

// RestitutionCombineRule returns the rule used to merge restitution with
// another collider's.
func (c *Collider) RestitutionCombineRule() CombineRule { return c.restitutionCombine }

// SetRestitutionCombineRule sets the restitution merge rule.
func (c *Collider) SetRestitutionCombineRule(r CombineRule) { c.restitutionCombine = r }

// Density returns the collider's material density.
func (c *Collider) Density() float64 { return c.density }

// SetDensity sets the material density and drops any explicitly set mass
// properties.
func (c *Collider) SetDensity(d float64) {
	c.density = clampNonNegative(d)
	c.explicitMass = nil
}

// Volume returns the volume of the collider's shape. Boundary-only shapes
// have zero volume.
func (c *Collider) Volume() float64 { return shape.Volume(c.shape) }

// Mass returns the collider's mass: the explicitly set mass when present,
// density times volume otherwise.
func (c *Collider) Mass() float64 {
	if c.explicitMass != nil {
		return c.explicitMass.Mass
	}
	return c.density * c.Volume()
}

// SetMass sets an explicit mass with a centered, isotropic inertia.
func (c *Collider) SetMass(mass float64) {
	c.explicitMass = &MassProperties{Mass: clampNonNegative(mass)}
}

// SetMassProperties sets the full explicit inertial description.
func (c *Collider) SetMassProperties(props MassProperties) {
	props.Mass = clampNonNegative(props.Mass)
	c.explicitMass = &props
}

// ContactSkin returns the extra contact margin around the shape.
func (c *Collider) ContactSkin() float64 { return c.contactSkin }

// SetContactSkin sets the extra contact margin; negative values clamp to
// zero.
func (c *Collider) SetContactSkin(v float64) { c.contactSkin = clampNonNegative(v) }

// ContactForceEventThreshold returns the force above which contact force
// events fire.
func (c *Collider) ContactForceEventThreshold() float64 { return c.contactForceThreshold }

// SetContactForceEventThreshold sets the contact force event threshold.
func (c *Collider) SetContactForceEventThreshold(v float64) { c.contactForceThreshold = v }

// CollisionGroups returns the collider's collision group mask.
func (c *Collider) CollisionGroups() uint32 { return c.collisionGroups }

// SetCollisionGroups sets the collision group mask.
func (c *Collider) SetCollisionGroups(groups uint32) { c.collisionGroups = groups }

// SolverGroups returns the collider's solver group mask.
func (c *Collider) SolverGroups() uint32 { return c.solverGroups }

// SetSolverGroups sets the solver group mask.
func (c *Collider) SetSolverGroups(groups uint32) { c.solverGroups = groups }

// ActiveHooks returns the collider's physics hook mask.
func (c *Collider) ActiveHooks() uint32 { return c.activeHooks }

// SetActiveHooks sets the physics hook mask.
func (c *Collider) SetActiveHooks(mask uint32) { c.activeHooks = mask }

// ActiveEvents returns the collider's event mask.
func (c *Collider) ActiveEvents() uint32 { return c.activeEvents }

// SetActiveEvents sets the event mask.
func (c *Collider) SetActiveEvents(mask uint32) { c.activeEvents = mask }

// ActiveCollisionTypesMask returns the body type pairs the collider collides
// across.
func (c *Collider) ActiveCollisionTypesMask() ActiveCollisionTypes { return c.activeCollisionTypes }

// SetActiveCollisionTypes sets the body type pair mask, dropping undefined
// bits.
func (c *Collider) SetActiveCollisionTypes(raw uint16) {
	c.activeCollisionTypes = DecodeActiveCollisionTypes(raw)
}

// IsSensor reports whether the collider only detects and never responds.
func (c *Collider) IsSensor() bool { return c.sensor }

// SetSensor flips the collider between solid and sensor.
func (c *Collider) SetSensor(sensor bool) { c.sensor = sensor }

// IsEnabled reports whether the collider takes part in queries.
func (c *Collider) IsEnabled() bool { return c.enabled }

// SetEnabled enables or disables the collider.
func (c *Collider) SetEnabled(enabled bool) { c.enabled = enabled }

func clampNonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
