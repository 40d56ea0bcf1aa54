package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

const (
	castMaxIterations = 64
	castDistTol       = 1e-7
)

// CastShapes sweeps two posed shapes along constant linear velocities and
// returns the earliest time at which they come within the target distance.
// The second return is false when they never do within MaxTOI. Rotation is
// held constant over the sweep.
//
// The advancement loop closes the current gap along the contact normal at
// every step, so the reported time of impact never overshoots; if the loop
// runs out of iterations the hit is flagged CastOutOfIterations.
func CastShapes(
	s1 shape.Shape, p1 spatialmath.Pose, vel1 r3.Vector,
	s2 shape.Shape, p2 spatialmath.Pose, vel2 r3.Vector,
	opts ShapeCastOptions,
) (ShapeCastHit, bool) {
	maxTOI := opts.MaxTOI
	if maxTOI < 0 {
		return ShapeCastHit{}, false
	}

	contactAt := func(t float64) (ShapeContact, bool) {
		at1 := p1.WithPoint(p1.Point().Add(vel1.Mul(t)))
		at2 := p2.WithPoint(p2.Point().Add(vel2.Mul(t)))
		return Contact(s1, at1, s2, at2, math.Inf(1))
	}
	relVel := vel2.Sub(vel1)

	contact, ok := contactAt(0)
	if !ok {
		return ShapeCastHit{}, false
	}
	if contact.Dist <= opts.TargetDistance+castDistTol {
		closing := relVel.Dot(contact.Normal1)
		if opts.StopAtPenetration || closing < 0 {
			return ShapeCastHit{
				Point1:  contact.Point1,
				Point2:  contact.Point2,
				Normal1: contact.Normal1,
				Normal2: contact.Normal2,
				Status:  CastPenetrating,
			}, true
		}
		// Initially overlapping but separating; no later impact is reported
		// for a linear sweep.
		return ShapeCastHit{}, false
	}

	t := 0.0
	for iter := 0; iter < castMaxIterations; iter++ {
		gap := contact.Dist - opts.TargetDistance
		if gap <= castDistTol {
			return ShapeCastHit{
				TOI:     t,
				Point1:  contact.Point1,
				Point2:  contact.Point2,
				Normal1: contact.Normal1,
				Normal2: contact.Normal2,
				Status:  CastConverged,
			}, true
		}

		// Speed at which shape2 approaches shape1 along the contact normal.
		closing := -relVel.Dot(contact.Normal1)
		if closing <= 1e-12 {
			return ShapeCastHit{}, false
		}
		t += gap / closing
		if t > maxTOI {
			return ShapeCastHit{}, false
		}

		contact, ok = contactAt(t)
		if !ok {
			return ShapeCastHit{}, false
		}
	}

	return ShapeCastHit{
		TOI:     t,
		Point1:  contact.Point1,
		Point2:  contact.Point2,
		Normal1: contact.Normal1,
		Normal2: contact.Normal2,
		Status:  CastOutOfIterations,
	}, true
}
