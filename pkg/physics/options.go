package physics

import (
	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/sweep"
)

// Tunables are the empirically chosen thresholds of the integrator. They are
// exposed so scenarios can adjust them; the defaults reproduce the reference
// behavior.
type Tunables struct {
	// AutoStepCutoff bounds |dx.x/dx.z| when deciding whether motion heads
	// into an obstruction squarely enough to step over it.
	AutoStepCutoff float64
	// Epsilon is the tolerance for float equality.
	Epsilon float64
	// ImpactEpsilon is the smallest impact speed reported as a collision.
	ImpactEpsilon float64
	// SleepVelocitySq is the squared speed above which a body stays awake.
	SleepVelocitySq float64
	// SleepFrames is how many quiet ticks a body gets before it may sleep.
	SleepFrames int
	// StepClearance is added when computing the height of a step.
	StepClearance float64
	// SweepEpsilon is the voxel edge tolerance used by the sweep.
	SweepEpsilon float64
}

func DefaultTunables() Tunables {
	return Tunables{
		AutoStepCutoff:  4,
		Epsilon:         1e-5,
		ImpactEpsilon:   0.001,
		SleepVelocitySq: 1e-5,
		SleepFrames:     10,
		StepClearance:   0.001,
		SweepEpsilon:    sweep.DefaultEpsilon,
	}
}

// Options are the world-wide physical constants.
type Options struct {
	Gravity          geom.Vector
	AirDrag          float64
	FluidDrag        float64
	FluidDensity     float64
	MinBounceImpulse float64

	Tunables Tunables

	// Debug enables scanning body state for NaN and Inf before integration.
	Debug bool
}

func DefaultOptions() Options {
	return Options{
		Gravity:          geom.Vector{0, -10, 0},
		AirDrag:          0.1,
		FluidDrag:        0.4,
		FluidDensity:     2.0,
		MinBounceImpulse: 0.5,
		Tunables:         DefaultTunables(),
	}
}
