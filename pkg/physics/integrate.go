package physics

import (
	"fmt"
	"math"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/sweep"
)

// outcome is what one body did during a tick.
type outcome struct {
	impulse  geom.Vector
	axes     [3]int8
	collided bool
	stepped  bool
	bounced  bool
}

func (o outcome) event(h Handle) ContactEvent {
	return ContactEvent{
		Body:    h,
		Impulse: o.impulse,
		Axes:    o.axes,
		Stepped: o.stepped,
		Bounced: o.bounced,
	}
}

func (o outcome) reportable() bool {
	return o.collided || o.stepped
}

// integrate advances a single body by dt seconds. When fire is set the
// body's callbacks run inline, otherwise the caller runs them from the
// returned outcome.
func (w *World) integrate(b *RigidBody, dt float64, noGravity bool, fire bool) (result outcome) {
	oldResting := b.Resting

	if b.isStatic() {
		b.Velocity = geom.Vector{}
		b.forces = geom.Vector{}
		b.impulses = geom.Vector{}
		return
	}

	localNoGravity := noGravity || b.GravityMultiplier == 0
	if w.bodyAsleep(b, dt, localNoGravity) {
		b.asleep = true
		return
	}
	b.asleep = false
	b.sleepFrameCount--

	w.applyFluidForces(b)

	if w.opts.Debug {
		sanityCheck(b)
	}

	// semi-implicit Euler
	a := b.forces.Mul(1 / b.Mass).ScaleAndAdd(w.opts.Gravity, b.GravityMultiplier)
	dv := b.impulses.Mul(1 / b.Mass).ScaleAndAdd(a, dt)
	b.Velocity = b.Velocity.Add(dv)

	if b.Friction != 0 {
		for axis := 0; axis < 3; axis++ {
			w.applyFriction(axis, b, dv)
		}
	}

	drag := b.airDrag(w.opts.AirDrag)
	if b.InFluid {
		drag = b.fluidDrag(w.opts.FluidDrag)
		drag *= 1 - math.Pow(1-b.RatioInFluid, 2)
	}
	b.Velocity = b.Velocity.Mul(math.Max(1-drag*dt/b.Mass, 0))

	dx := b.Velocity.Mul(dt)

	b.forces = geom.Vector{}
	b.impulses = geom.Vector{}

	var before geom.AABB
	if b.AutoStep {
		before = b.AABB.Clone()
	}

	w.processCollisions(&b.AABB, dx, &b.Resting)

	if b.AutoStep && w.tryAutoStepping(b, before, dx) {
		result.stepped = true
		if fire && b.OnStep != nil {
			b.OnStep()
		}
	}

	var impacts geom.Vector
	for axis := 0; axis < 3; axis++ {
		if b.Resting[axis] == 0 {
			continue
		}
		// only count the impact if the axis was free last tick
		if oldResting[axis] == 0 {
			impacts[axis] = -b.Velocity[axis]
		}
		b.Velocity[axis] = 0
	}
	result.axes = b.Resting

	mag := impacts.Magnitude()
	if mag > w.opts.Tunables.ImpactEpsilon {
		impulse := impacts.Mul(b.Mass)
		result.impulse = impulse
		result.collided = true

		if fire && b.OnCollide != nil {
			b.OnCollide(impulse)
		}

		if b.Restitution > 0 && mag > w.opts.MinBounceImpulse {
			b.ApplyImpulse(impulse.Mul(b.Restitution))
			result.bounced = true
		}
	}

	if b.Velocity.SquaredMagnitude() > w.opts.Tunables.SleepVelocitySq {
		b.markActive()
	}

	return
}

// processCollisions sweeps box along dx, recording which faces were hit.
func (w *World) processCollisions(box *geom.AABB, dx geom.Vector, resting *[3]int8) {
	*resting = [3]int8{}
	sweep.SweepWithEpsilon(w.isSolid, box, dx, func(_ float64, axis, dir int, remaining *geom.Vector) bool {
		resting[axis] = int8(dir)
		remaining[axis] = 0
		return false
	}, false, w.opts.Tunables.SweepEpsilon)
}

// bodyAsleep decides whether a body that has been quiet long enough can
// keep sleeping. Without gravity nothing but an applied force or impulse
// wakes it. Otherwise it sleeps only while gravity would push it into
// something.
func (w *World) bodyAsleep(b *RigidBody, dt float64, noGravity bool) bool {
	if b.sleepFrameCount > 0 {
		return false
	}
	if noGravity {
		return true
	}

	drop := w.opts.Gravity.Mul(0.5 * dt * dt * b.GravityMultiplier)
	resting := false
	box := b.AABB.Clone()
	sweep.SweepWithEpsilon(w.isSolid, &box, drop, func(float64, int, int, *geom.Vector) bool {
		resting = true
		return true
	}, true, w.opts.Tunables.SweepEpsilon)
	return resting
}

func sanityCheck(b *RigidBody) {
	check := func(name string, v geom.Vector) {
		if !v.IsFinite() {
			panic(fmt.Errorf("%s is %v: %w", name, v, ErrNonFinite))
		}
	}
	check("forces", b.forces)
	check("impulses", b.impulses)
	check("velocity", b.Velocity)
	check("position", b.AABB.Base)
}

func (w *World) equals(a, b float64) bool {
	return math.Abs(a-b) < w.opts.Tunables.Epsilon
}
