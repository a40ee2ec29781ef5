package physics

import (
	"math"

	"github.com/cfoust/voxphys/pkg/geom"
)

// applyFriction slows the body's motion across a surface it is pressed
// against along axis. The change in velocity this tick stands in for the
// normal force, so the lateral speed drops by at most |friction * dv|.
func (w *World) applyFriction(axis int, b *RigidBody, dv geom.Vector) {
	restDir := float64(b.Resting[axis])
	normal := dv[axis]
	if restDir == 0 || restDir*normal <= 0 {
		return
	}

	lateral := b.Velocity
	lateral[axis] = 0
	speed := lateral.Magnitude()
	if w.equals(speed, 0) {
		return
	}

	scale := frictionFactor(speed, math.Abs(b.Friction*normal))
	b.Velocity[(axis+1)%3] *= scale
	b.Velocity[(axis+2)%3] *= scale
}

// frictionFactor returns the multiplier that removes up to maxLoss from
// speed without reversing it. Always in [0, 1].
func frictionFactor(speed, maxLoss float64) float64 {
	if speed <= maxLoss || speed <= 0 {
		return 0
	}
	return (speed - maxLoss) / speed
}
