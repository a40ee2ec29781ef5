package physics

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/cfoust/voxphys/pkg/geom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 16.0

func makeBox(t *testing.T, base, extent geom.Vector) geom.AABB {
	box, err := geom.NewAABB(base, extent)
	require.NoError(t, err)
	return box
}

func unit(t *testing.T, x, y, z float64) geom.AABB {
	return makeBox(t, geom.Vector{x, y, z}, geom.Vector{1, 1, 1})
}

func nothing(x, y, z int) bool { return false }

func floorPlane(x, y, z int) bool { return y < 0 }

func weightless() Options {
	opts := DefaultOptions()
	opts.Gravity = geom.Vector{}
	return opts
}

func TestStaticBodiesNeverMove(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	start := unit(t, 0, 3, 0)
	h := w.AddBody(start, WithMass(0), WithVelocity(geom.Vector{1, 2, 3}))
	b := w.Body(h)

	for i := 0; i < 50; i++ {
		b.ApplyForce(geom.Vector{5, 5, 5})
		b.ApplyImpulse(geom.Vector{-1, 0, 1})
		w.Tick(frame)

		assert.Equal(t, start, b.AABB)
		assert.Equal(t, geom.Vector{}, b.Velocity)
		assert.Equal(t, geom.Vector{}, b.forces)
		assert.Equal(t, geom.Vector{}, b.impulses)
	}
}

func TestSettlesOnFloor(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)

	var impulses []geom.Vector
	h := w.AddBody(unit(t, 0, 3, 0), WithOnCollide(func(impulse geom.Vector) {
		impulses = append(impulses, impulse)
	}))
	b := w.Body(h)

	for i := 0; i < 200; i++ {
		w.Tick(frame)
	}

	assert.Equal(t, int8(-1), b.AtRestY())
	assert.Equal(t, 0.0, b.Velocity[1])
	assert.InDelta(t, 0.0, b.Position()[1], 1e-9)
	assert.True(t, b.Asleep(), "a body resting under gravity goes to sleep")

	require.Len(t, impulses, 1, "landing is reported once")
	assert.Greater(t, impulses[0][1], 0.0, "impulse points away from the floor")
}

func TestSmallImpactsAreNotReported(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		reported bool
	}{
		{"below epsilon", 0.0009, false},
		{"above epsilon", 0.002, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(weightless(), floorPlane, nothing)
			called := false
			w.AddBody(
				unit(t, 0, 0, 0),
				WithVelocity(geom.Vector{0, -tt.speed, 0}),
				WithOnCollide(func(geom.Vector) { called = true }),
			)

			events := w.Tick(frame)
			assert.Equal(t, tt.reported, called)
			assert.Equal(t, tt.reported, len(events) == 1)
		})
	}
}

func TestRestitution(t *testing.T) {
	for _, restitution := range []float64{0, 0.5} {
		w := New(DefaultOptions(), floorPlane, nothing)
		h := w.AddBody(unit(t, 0, 3, 0), WithRestitution(restitution))
		b := w.Body(h)

		bounced := false
		rose := false
		landed := false
		for i := 0; i < 120; i++ {
			for _, event := range w.Tick(frame) {
				landed = true
				if event.Bounced {
					bounced = true
				}
			}
			if landed && b.Velocity[1] > 0 {
				rose = true
			}
		}

		require.True(t, landed)
		assert.Equal(t, restitution > 0, bounced, "restitution %v", restitution)
		assert.Equal(t, restitution > 0, rose, "restitution %v", restitution)
	}
}

func TestFrictionFactorBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		speed := rng.Float64() * 10
		loss := rng.Float64() * 10
		factor := frictionFactor(speed, loss)
		assert.GreaterOrEqual(t, factor, 0.0)
		assert.LessOrEqual(t, factor, 1.0)
	}
	assert.Equal(t, 0.0, frictionFactor(0, 0))
	assert.Equal(t, 0.5, frictionFactor(2, 1))
}

func TestFrictionNeverReversesMotion(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	h := w.AddBody(unit(t, 0, 0, 0), WithVelocity(geom.Vector{3, 0, -2}))
	b := w.Body(h)

	for i := 0; i < 100; i++ {
		w.Tick(frame)
		require.GreaterOrEqual(t, b.Velocity[0], 0.0)
		require.LessOrEqual(t, b.Velocity[2], 0.0)
	}

	assert.InDelta(t, 0, b.Velocity[0], 1e-9, "friction brought the body to a stop")
	assert.InDelta(t, 0, b.Velocity[2], 1e-9)
}

func TestFrictionlessBodySlides(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	h := w.AddBody(unit(t, 0, 0, 0), WithFriction(0), WithAirDrag(0), WithVelocity(geom.Vector{2, 0, 0}))
	b := w.Body(h)

	for i := 0; i < 20; i++ {
		w.Tick(frame)
	}
	assert.InDelta(t, 2.0, b.Velocity[0], 1e-9)
}

func TestSleepWithoutGravity(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		mult float64
	}{
		{"world without gravity", weightless(), 1},
		{"body without gravity", DefaultOptions(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.opts, floorPlane, nothing)
			start := unit(t, 0, 5, 0)
			h := w.AddBody(start, WithGravityMultiplier(tt.mult))
			b := w.Body(h)

			for i := 0; i < 50; i++ {
				w.Tick(frame)
				require.Equal(t, start, b.AABB)
			}
			assert.True(t, b.Asleep())

			b.ApplyImpulse(geom.Vector{1, 0, 0})
			w.Tick(frame)
			assert.False(t, b.Asleep())
			assert.Greater(t, b.Position()[0], 0.0)
		})
	}
}

func TestDragOverride(t *testing.T) {
	w := New(weightless(), nothing, nothing)
	plain := w.Body(w.AddBody(unit(t, 0, 0, 0), WithVelocity(geom.Vector{1, 0, 0})))
	frictionless := w.Body(w.AddBody(unit(t, 0, 5, 0), WithAirDrag(0), WithVelocity(geom.Vector{1, 0, 0})))

	for i := 0; i < 10; i++ {
		w.Tick(frame)
	}

	assert.Less(t, plain.Velocity[0], 1.0)
	assert.Equal(t, 1.0, frictionless.Velocity[0])
}

func TestBuoyancy(t *testing.T) {
	water := func(x, y, z int) bool { return y < 0 }

	wet := New(DefaultOptions(), nothing, water)
	dry := New(DefaultOptions(), nothing, nothing)
	swimmer := wet.Body(wet.AddBody(unit(t, 0, 2, 0)))
	faller := dry.Body(dry.AddBody(unit(t, 0, 2, 0)))

	var ratios []float64
	sinking := true
	entered := false
	for i := 0; i < 200; i++ {
		wet.Tick(frame)
		dry.Tick(frame)

		require.GreaterOrEqual(t, swimmer.RatioInFluid, 0.0)
		require.LessOrEqual(t, swimmer.RatioInFluid, 1.0)
		if swimmer.InFluid {
			entered = true
		}

		if sinking {
			ratios = append(ratios, swimmer.RatioInFluid)
			sinking = swimmer.Velocity[1] < 0
		}
	}

	require.True(t, entered)
	assert.Equal(t, 0.0, ratios[0])
	for i := 1; i < len(ratios); i++ {
		assert.GreaterOrEqual(t, ratios[i], ratios[i-1], "submersion grows while sinking")
	}
	assert.Equal(t, 1.0, ratios[len(ratios)-1], "fully submerged at the bottom of the dive")

	assert.Greater(t, swimmer.Position()[1], faller.Position()[1])
	assert.Less(t, math.Abs(swimmer.Velocity[1]), math.Abs(faller.Velocity[1]))
}

func TestSubmergedBodyStaysAwake(t *testing.T) {
	pool := func(x, y, z int) bool { return y >= 0 && y < 3 }
	w := New(DefaultOptions(), floorPlane, pool)
	// too heavy to float
	h := w.AddBody(unit(t, 0, 0.5, 0), WithMass(5))

	for i := 0; i < 300; i++ {
		w.Tick(frame)
	}

	b := w.Body(h)
	assert.Equal(t, int8(-1), b.AtRestY())
	assert.True(t, b.InFluid)
	assert.Equal(t, 1.0, b.RatioInFluid)
	assert.False(t, b.Asleep())
}

func TestSubmersion(t *testing.T) {
	assert.Equal(t, 0.5, submersion(0, -0.5, 1))
	assert.Equal(t, 1.0, submersion(3, -0.5, 1))
	assert.Equal(t, 1.0, submersion(0, 0, 0), "flat boxes are either in or out")
}

// plateau is a floor with a one voxel high ledge starting at x = 3.
func plateau(x, y, z int) bool {
	return y < 0 || (x >= 3 && y == 0)
}

// wall is a floor with a two voxel high wall starting at x = 3.
func wall(x, y, z int) bool {
	return y < 0 || (x >= 3 && y <= 1)
}

func TestAutoStep(t *testing.T) {
	w := New(DefaultOptions(), plateau, nothing)

	steps := 0
	h := w.AddBody(
		makeBox(t, geom.Vector{0.2, 0, 0.2}, geom.Vector{0.6, 1.8, 0.6}),
		WithAutoStep(true),
		WithFriction(0),
		WithVelocity(geom.Vector{4, 0, 0}),
		WithOnStep(func() { steps++ }),
	)
	b := w.Body(h)

	stepEvents := 0
	for i := 0; i < 60; i++ {
		for _, event := range w.Tick(frame) {
			if event.Stepped {
				stepEvents++
			}
		}
	}

	assert.Equal(t, 1, steps)
	assert.Equal(t, 1, stepEvents)
	assert.InDelta(t, 1.0, b.Position()[1], 1e-6, "climbed one voxel")
	assert.Greater(t, b.Position()[0], 3.0, "kept going past the ledge")
}

func TestAutoStepBlockedByWall(t *testing.T) {
	w := New(DefaultOptions(), wall, nothing)

	steps := 0
	h := w.AddBody(
		makeBox(t, geom.Vector{0.2, 0, 0.2}, geom.Vector{0.6, 1.8, 0.6}),
		WithAutoStep(true),
		WithFriction(0),
		WithVelocity(geom.Vector{4, 0, 0}),
		WithOnStep(func() { steps++ }),
	)
	b := w.Body(h)

	for i := 0; i < 60; i++ {
		w.Tick(frame)
	}

	assert.Equal(t, 0, steps)
	assert.InDelta(t, 0.0, b.Position()[1], 1e-9)
	assert.InDelta(t, 2.4, b.Position()[0], 1e-6)
	assert.Equal(t, 0.0, b.Velocity[0], "stopped dead against the wall")
}

func TestZeroTickIsNoop(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	start := unit(t, 0.5, 5, 0.5)
	h := w.AddBody(start)
	b := w.Body(h)

	for i := 0; i < 5; i++ {
		events := w.Tick(0)
		assert.Empty(t, events)
	}

	assert.Equal(t, start, b.AABB)
	assert.Equal(t, geom.Vector{}, b.Velocity)
}

func TestNonFiniteStatePanicsInDebug(t *testing.T) {
	opts := DefaultOptions()
	opts.Debug = true
	w := New(opts, floorPlane, nothing)
	h := w.AddBody(unit(t, 0, 5, 0))
	w.Body(h).ApplyForce(geom.Vector{math.NaN(), 0, 0})

	defer func() {
		err, ok := recover().(error)
		require.True(t, ok, "expected a panic with an error")
		assert.ErrorIs(t, err, ErrNonFinite)
	}()
	w.Tick(frame)
}

func TestHandles(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	a := w.AddBody(unit(t, 0, 0, 0))
	b := w.AddBody(unit(t, 2, 0, 0))
	c := w.AddBody(unit(t, 4, 0, 0))

	assert.Equal(t, []Handle{a, b, c}, w.Bodies())
	require.NoError(t, w.RemoveBody(b))
	assert.Equal(t, []Handle{a, c}, w.Bodies())
	assert.Equal(t, 2, w.Len())
	assert.Nil(t, w.Body(b))

	assert.ErrorIs(t, w.RemoveBody(b), ErrUnknownBody, "stale handle")
	assert.ErrorIs(t, w.RemoveBody(Handle{}), ErrUnknownBody, "zero handle")

	d := w.AddBody(unit(t, 6, 0, 0))
	assert.Equal(t, b.ID(), d.ID(), "slot is reused")
	assert.NotEqual(t, b, d)
	assert.Nil(t, w.Body(b), "old handle stays dead")
	assert.NotNil(t, w.Body(d))
	assert.Equal(t, []Handle{a, c, d}, w.Bodies())
}

func TestRemovalDuringTick(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)

	var victim Handle
	var removeErr, secondErr error
	w.AddBody(
		unit(t, 0, 0, 0),
		WithVelocity(geom.Vector{0, -1, 0}),
		WithOnCollide(func(geom.Vector) {
			removeErr = w.RemoveBody(victim)
			secondErr = w.RemoveBody(victim)
		}),
	)
	start := unit(t, 5, 5, 5)
	victim = w.AddBody(start)
	body := w.Body(victim)

	w.Tick(frame)

	require.NoError(t, removeErr)
	assert.ErrorIs(t, secondErr, ErrUnknownBody)
	assert.Equal(t, start, body.AABB, "removed body is skipped for the rest of the tick")
	assert.Nil(t, w.Body(victim))
	assert.Equal(t, 1, w.Len())
}

func populate(t *testing.T, w *World, counter *int) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 40; i++ {
		w.AddBody(
			makeBox(t,
				geom.Vector{rng.Float64()*20 - 10, rng.Float64() * 6, rng.Float64()*20 - 10},
				geom.Vector{0.6, 1.8, 0.6},
			),
			WithVelocity(geom.Vector{rng.Float64()*8 - 4, 0, rng.Float64()*8 - 4}),
			WithRestitution(rng.Float64()*0.5),
			WithAutoStep(i%2 == 0),
			WithOnCollide(func(geom.Vector) { *counter++ }),
		)
	}
}

func TestParallelTickMatchesSequential(t *testing.T) {
	terrain := func(x, y, z int) bool {
		return y < 0 || (y == 0 && (x+z)%5 == 0)
	}
	water := func(x, y, z int) bool {
		return y < 3 && x > 6
	}

	var sequentialHits, parallelHits int
	sequential := New(DefaultOptions(), terrain, water)
	parallel := New(DefaultOptions(), terrain, water)
	populate(t, sequential, &sequentialHits)
	populate(t, parallel, &parallelHits)

	for i := 0; i < 100; i++ {
		expected := sequential.Tick(frame)
		actual, err := parallel.TickParallel(context.Background(), frame, 4)
		require.NoError(t, err)
		require.Equal(t, expected, actual)
	}

	assert.Equal(t, sequential.Snapshot(), parallel.Snapshot())
	assert.Equal(t, sequentialHits, parallelHits)
	assert.Greater(t, sequentialHits, 0)
}

func TestParallelTickCancelled(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	h := w.AddBody(unit(t, 0, 2, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := w.TickParallel(ctx, frame, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, events)
	assert.Equal(t, uint64(0), w.Ticks(), "a cancelled tick never starts")
	assert.Equal(t, geom.Vector{0, 2, 0}, w.Body(h).Position())
	assert.Equal(t, geom.Vector{}, w.Body(h).Velocity)
}

func TestSnapshot(t *testing.T) {
	w := New(DefaultOptions(), floorPlane, nothing)
	a := w.AddBody(unit(t, 0, 0, 0))
	w.AddBody(unit(t, 2, 0, 0), WithMass(0))
	w.Tick(frame)
	w.Tick(frame)

	snapshot := w.Snapshot()
	assert.Equal(t, uint64(2), snapshot.Tick)
	require.Len(t, snapshot.Bodies, 2)
	assert.Equal(t, a.ID(), snapshot.Bodies[0].ID)
	assert.Equal(t, int8(-1), snapshot.Bodies[0].Resting[1])
	assert.Equal(t, geom.Vector{1, 1, 1}, snapshot.Bodies[1].Extent)
}
