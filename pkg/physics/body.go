package physics

import (
	"github.com/cfoust/voxphys/pkg/geom"

	opt "github.com/repeale/fp-go/option"
)

// RigidBody is the physical state of one dynamic object. Bodies are created
// and owned by a World; callers hold a Handle and may read or adjust the
// exported fields between ticks.
type RigidBody struct {
	AABB geom.AABB

	// Mass <= 0 makes the body static.
	Mass              float64
	Friction          float64
	Restitution       float64
	GravityMultiplier float64

	// AirDrag and FluidDrag override the world defaults when set.
	AirDrag   opt.Option[float64]
	FluidDrag opt.Option[float64]

	AutoStep bool

	Velocity geom.Vector

	// Resting holds, per axis, the direction of the surface the body touched
	// during the last tick: -1, 0 or 1.
	Resting [3]int8

	InFluid      bool
	RatioInFluid float64

	OnCollide func(impulse geom.Vector)
	OnStep    func()

	forces   geom.Vector
	impulses geom.Vector

	sleepFrames     int
	sleepFrameCount int
	asleep          bool
}

func newBody(box geom.AABB, sleepFrames int) *RigidBody {
	b := &RigidBody{
		AABB:              box,
		Mass:              1,
		Friction:          1,
		GravityMultiplier: 1,
		AirDrag:           opt.None[float64](),
		FluidDrag:         opt.None[float64](),
		sleepFrames:       sleepFrames,
	}
	b.markActive()
	return b
}

func (b *RigidBody) markActive() {
	b.sleepFrameCount = b.sleepFrames
	b.asleep = false
}

// ApplyForce adds a continuous force for the next tick.
func (b *RigidBody) ApplyForce(f geom.Vector) {
	b.forces = b.forces.Add(f)
	b.markActive()
}

// ApplyImpulse adds an instantaneous impulse for the next tick.
func (b *RigidBody) ApplyImpulse(i geom.Vector) {
	b.impulses = b.impulses.Add(i)
	b.markActive()
}

func (b *RigidBody) AtRestX() int8 { return b.Resting[geom.X] }
func (b *RigidBody) AtRestY() int8 { return b.Resting[geom.Y] }
func (b *RigidBody) AtRestZ() int8 { return b.Resting[geom.Z] }

// Position is the base corner of the body's box.
func (b *RigidBody) Position() geom.Vector {
	return b.AABB.Base
}

// SetPosition teleports the body and wakes it up.
func (b *RigidBody) SetPosition(p geom.Vector) {
	b.AABB.SetBase(p)
	b.markActive()
}

// Asleep reports whether the body was skipped by the last tick.
func (b *RigidBody) Asleep() bool {
	return b.asleep
}

func (b *RigidBody) airDrag(fallback float64) float64 {
	if opt.IsNone(b.AirDrag) {
		return fallback
	}
	return b.AirDrag.Value
}

func (b *RigidBody) fluidDrag(fallback float64) float64 {
	if opt.IsNone(b.FluidDrag) {
		return fallback
	}
	return b.FluidDrag.Value
}

func (b *RigidBody) isStatic() bool {
	return b.Mass <= 0
}

// BodyOption configures a body at creation time.
type BodyOption func(*RigidBody)

func WithMass(mass float64) BodyOption {
	return func(b *RigidBody) { b.Mass = mass }
}

func WithFriction(friction float64) BodyOption {
	return func(b *RigidBody) { b.Friction = friction }
}

func WithRestitution(restitution float64) BodyOption {
	return func(b *RigidBody) { b.Restitution = restitution }
}

func WithGravityMultiplier(multiplier float64) BodyOption {
	return func(b *RigidBody) { b.GravityMultiplier = multiplier }
}

func WithOnCollide(callback func(impulse geom.Vector)) BodyOption {
	return func(b *RigidBody) { b.OnCollide = callback }
}

func WithOnStep(callback func()) BodyOption {
	return func(b *RigidBody) { b.OnStep = callback }
}

func WithAutoStep(enabled bool) BodyOption {
	return func(b *RigidBody) { b.AutoStep = enabled }
}

func WithAirDrag(drag float64) BodyOption {
	return func(b *RigidBody) { b.AirDrag = opt.Some(drag) }
}

func WithFluidDrag(drag float64) BodyOption {
	return func(b *RigidBody) { b.FluidDrag = opt.Some(drag) }
}

func WithVelocity(velocity geom.Vector) BodyOption {
	return func(b *RigidBody) { b.Velocity = velocity }
}
