// Package physics integrates rigid axis-aligned bodies against a voxel world.
//
// The world never owns voxel data. It asks two oracles whether a voxel is
// solid or fluid, and sweeps bodies through the solid ones.
package physics

import (
	"context"
	"fmt"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/sweep"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ContactEvent describes what happened to a body during a tick. One is
// produced for each body that hit something hard enough to report or that
// stepped over a ledge.
type ContactEvent struct {
	Body Handle
	// Impulse is the collision impulse, mass times the velocity lost.
	Impulse geom.Vector
	// Axes are the body's resting flags after the tick.
	Axes    [3]int8
	Stepped bool
	Bounced bool
}

type World struct {
	opts    Options
	isSolid sweep.TestFunc
	isFluid sweep.TestFunc

	bodies arena
	ticks  uint64

	ticking bool
	pending []Handle
}

func New(opts Options, isSolid, isFluid sweep.TestFunc) *World {
	return &World{
		opts:    opts,
		isSolid: isSolid,
		isFluid: isFluid,
	}
}

func (w *World) Options() Options {
	return w.opts
}

// Ticks is the number of ticks the world has run.
func (w *World) Ticks() uint64 {
	return w.ticks
}

// AddBody creates a body occupying box. Defaults are mass 1, friction 1, no
// restitution and full gravity.
func (w *World) AddBody(box geom.AABB, opts ...BodyOption) Handle {
	body := newBody(box, w.opts.Tunables.SleepFrames)
	for _, option := range opts {
		option(body)
	}

	handle := w.bodies.insert(body)
	log.Debug().
		Uint32("body", handle.ID()).
		Str("box", box.String()).
		Float64("mass", body.Mass).
		Msg("added body")
	return handle
}

// RemoveBody removes a body and drops its callbacks. Removing a body from
// inside a tick callback is allowed: the body is skipped for the rest of the
// tick and removed once the tick finishes.
func (w *World) RemoveBody(h Handle) error {
	s := w.bodies.lookup(h)
	if s == nil || s.removing {
		return fmt.Errorf("could not remove %s: %w", h, ErrUnknownBody)
	}

	s.body.OnCollide = nil
	s.body.OnStep = nil

	if w.ticking {
		s.removing = true
		w.pending = append(w.pending, h)
		return nil
	}

	w.bodies.remove(h)
	log.Debug().Uint32("body", h.ID()).Msg("removed body")
	return nil
}

// Body resolves a handle, returning nil for removed bodies.
func (w *World) Body(h Handle) *RigidBody {
	return w.bodies.get(h)
}

// Bodies returns the handles of all bodies in tick order.
func (w *World) Bodies() []Handle {
	handles := make([]Handle, len(w.bodies.order))
	copy(handles, w.bodies.order)
	return handles
}

func (w *World) Len() int {
	return w.bodies.len()
}

func (w *World) noGravity() bool {
	return w.equals(0, w.opts.Gravity.SquaredMagnitude())
}

// Tick advances every body by dtMillis milliseconds, in insertion order, and
// returns the contact events of the tick. Callbacks run inline as each body
// is integrated.
func (w *World) Tick(dtMillis float64) []ContactEvent {
	dt := dtMillis / 1000
	noGravity := w.noGravity()

	w.begin()
	defer w.finish()

	var events []ContactEvent
	for _, h := range w.bodies.order {
		s := w.bodies.lookup(h)
		if s == nil || s.removing {
			continue
		}

		result := w.integrate(s.body, dt, noGravity, true)
		if result.reportable() {
			events = append(events, result.event(h))
		}
	}

	return events
}

// TickParallel is Tick with bodies integrated on up to workers goroutines.
// The oracles must be safe for concurrent use. Callbacks are deferred until
// every body has been integrated and then run in tick order, so they must
// not expect to observe other bodies mid-tick.
//
// ctx is only checked before the tick starts. A tick that has begun always
// integrates every body.
func (w *World) TickParallel(ctx context.Context, dtMillis float64, workers int) ([]ContactEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dt := dtMillis / 1000
	noGravity := w.noGravity()

	w.begin()
	defer w.finish()

	order := w.bodies.order
	bodies := make([]*RigidBody, len(order))
	for i, h := range order {
		bodies[i] = w.bodies.get(h)
	}
	results := make([]outcome, len(order))

	var group errgroup.Group
	if workers > 0 {
		group.SetLimit(workers)
	}

	for i := range bodies {
		i := i
		group.Go(func() error {
			results[i] = w.integrate(bodies[i], dt, noGravity, false)
			return nil
		})
	}
	group.Wait()

	var events []ContactEvent
	for i, h := range order {
		result := results[i]
		if !result.reportable() {
			continue
		}

		// a callback may have removed this body
		s := w.bodies.lookup(h)
		if s != nil && !s.removing {
			b := s.body
			if result.stepped && b.OnStep != nil {
				b.OnStep()
			}
			if result.collided && b.OnCollide != nil {
				b.OnCollide(result.impulse)
			}
		}

		events = append(events, result.event(h))
	}

	return events, nil
}

func (w *World) begin() {
	w.ticking = true
}

func (w *World) finish() {
	w.ticking = false
	w.ticks++

	for _, h := range w.pending {
		if w.bodies.remove(h) {
			log.Debug().Uint32("body", h.ID()).Msg("removed body")
		}
	}
	w.pending = w.pending[:0]
}
