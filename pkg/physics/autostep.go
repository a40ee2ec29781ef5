package physics

import (
	"math"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/sweep"
)

// tryAutoStepping retries a horizontally blocked move one voxel higher.
// box is the body's box before collisions were resolved this tick and dx the
// intended displacement. On success the body takes the stepped box and the
// horizontal resting flags of the retried move.
func (w *World) tryAutoStepping(b *RigidBody, box geom.AABB, dx geom.Vector) bool {
	if b.Resting[geom.Y] >= 0 && !b.InFluid {
		return false
	}

	xBlocked := b.Resting[geom.X] != 0
	zBlocked := b.Resting[geom.Z] != 0
	if !xBlocked && !zBlocked {
		return false
	}

	// only step when heading into the obstruction squarely enough
	ratio := math.Abs(dx[geom.X] / dx[geom.Z])
	cutoff := w.opts.Tunables.AutoStepCutoff
	if !xBlocked && ratio > cutoff {
		return false
	}
	if !zBlocked && ratio < 1/cutoff {
		return false
	}

	eps := w.opts.Tunables.SweepEpsilon
	target := box.Base.Add(dx)

	// advance until the first horizontal contact, sliding along the floor
	sweep.SweepWithEpsilon(w.isSolid, &box, dx, func(_ float64, axis, _ int, remaining *geom.Vector) bool {
		if axis != geom.Y {
			return true
		}
		remaining[geom.Y] = 0
		return false
	}, false, eps)

	y := b.AABB.Base[geom.Y]
	rise := math.Floor(y+1+w.opts.Tunables.StepClearance) - y
	blocked := false
	sweep.SweepWithEpsilon(w.isSolid, &box, geom.Vector{0, rise, 0}, func(float64, int, int, *geom.Vector) bool {
		blocked = true
		return true
	}, false, eps)
	if blocked {
		return false
	}

	leftover := target.Sub(box.Base)
	leftover[geom.Y] = 0
	var resting [3]int8
	w.processCollisions(&box, leftover, &resting)

	if xBlocked && !w.equals(box.Base[geom.X], target[geom.X]) {
		return false
	}
	if zBlocked && !w.equals(box.Base[geom.Z], target[geom.Z]) {
		return false
	}

	b.AABB = box
	b.Resting[geom.X] = resting[geom.X]
	b.Resting[geom.Z] = resting[geom.Z]
	return true
}
