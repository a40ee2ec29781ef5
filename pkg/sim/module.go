// Package sim drives a physics world in real time.
package sim

import (
	"context"
	"time"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/physics"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// subscribers that fall this many ticks behind start missing updates
const topicBuffer = 64

// Contacts are the contact events of one tick.
type Contacts struct {
	Tick   uint64
	Events []physics.ContactEvent
}

// Terrain pages chunks in and out around the given boxes.
type Terrain interface {
	Retain(ctx context.Context, boxes []geom.AABB, radius int) (loaded, unloaded int, err error)
}

// Runner owns a World and ticks it at a fixed rate. Other goroutines reach
// the world only through Do.
type Runner struct {
	mutex      deadlock.Mutex
	world      *physics.World
	tickMillis float64
	workers    int
	duration   time.Duration

	paused bool
	ticker *Ticker
	timer  *Timer

	events    *Topic[Contacts]
	snapshots *Topic[physics.Snapshot]

	terrain      Terrain
	retainRadius int
	retainEvery  uint64
}

// NewRunner ticks world every tickMillis milliseconds. With workers > 1
// bodies are integrated in parallel.
func NewRunner(world *physics.World, tickMillis float64, workers int) *Runner {
	return &Runner{
		world:      world,
		tickMillis: tickMillis,
		workers:    workers,
		events:     NewTopic[Contacts](topicBuffer),
		snapshots:  NewTopic[physics.Snapshot](topicBuffer),
	}
}

// Events publishes the contact events of every tick that had any.
func (r *Runner) Events() *Topic[Contacts] {
	return r.events
}

// SetTerrain makes the runner keep only the chunks within radius chunks of
// some body loaded, checking every given number of ticks.
func (r *Runner) SetTerrain(terrain Terrain, radius, every int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.terrain = terrain
	r.retainRadius = radius
	r.retainEvery = uint64(every)
	if r.retainEvery == 0 {
		r.retainEvery = 1
	}
}

func (r *Runner) retain(ctx context.Context) error {
	if r.terrain == nil || r.world.Ticks()%r.retainEvery != 0 {
		return nil
	}

	handles := r.world.Bodies()
	boxes := make([]geom.AABB, 0, len(handles))
	for _, h := range handles {
		if body := r.world.Body(h); body != nil {
			boxes = append(boxes, body.AABB)
		}
	}

	loaded, unloaded, err := r.terrain.Retain(ctx, boxes, r.retainRadius)
	if err != nil {
		return err
	}
	if loaded > 0 || unloaded > 0 {
		log.Debug().
			Uint64("tick", r.world.Ticks()).
			Int("loaded", loaded).
			Int("unloaded", unloaded).
			Msg("paged terrain")
	}
	return nil
}

// Snapshots publishes the world state after every tick.
func (r *Runner) Snapshots() *Topic[physics.Snapshot] {
	return r.snapshots
}

// SetDuration limits how long Run lasts. Time spent paused does not count.
func (r *Runner) SetDuration(d time.Duration) {
	r.mutex.Lock()
	r.duration = d
	r.mutex.Unlock()
}

// Do runs fn with exclusive access to the world, between ticks.
func (r *Runner) Do(fn func(*physics.World)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fn(r.world)
}

// Step advances the world by one tick, pages terrain if needed and
// publishes the results.
func (r *Runner) Step(ctx context.Context) ([]physics.ContactEvent, error) {
	r.mutex.Lock()
	var events []physics.ContactEvent
	var err error
	if r.workers > 1 {
		events, err = r.world.TickParallel(ctx, r.tickMillis, r.workers)
	} else {
		events = r.world.Tick(r.tickMillis)
	}
	if err == nil {
		err = r.retain(ctx)
	}
	snapshot := r.world.Snapshot()
	r.mutex.Unlock()

	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		r.events.Publish(Contacts{Tick: snapshot.Tick, Events: events})
	}
	if dropped := r.snapshots.Publish(snapshot); dropped > 0 {
		log.Debug().Uint64("tick", snapshot.Tick).Int("dropped", dropped).Msg("snapshot subscribers fell behind")
	}

	return events, nil
}

// Run ticks the world in real time until ctx is done or the configured
// duration has elapsed.
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Duration(r.tickMillis * float64(time.Millisecond))
	ticker := NewTicker(interval)
	defer ticker.Stop()

	r.mutex.Lock()
	r.ticker = ticker
	var expired <-chan time.Time
	if r.duration > 0 {
		r.timer = NewTimer(r.duration)
		expired = r.timer.C
		if !r.paused {
			r.timer.Start()
		}
	}
	if r.paused {
		ticker.Pause()
	}
	timer := r.timer
	r.mutex.Unlock()

	defer func() {
		r.mutex.Lock()
		r.ticker = nil
		r.timer = nil
		r.mutex.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	log.Info().
		Float64("tickMillis", r.tickMillis).
		Int("workers", r.workers).
		Dur("duration", r.duration).
		Msg("simulation started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			log.Info().Msg("simulation finished")
			return nil
		case <-ticker.C:
			if _, err := r.Step(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) Pause() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.paused = true
	if r.ticker != nil {
		r.ticker.Pause()
	}
	if r.timer != nil {
		r.timer.Pause()
	}
}

func (r *Runner) Resume() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.paused = false
	if r.ticker != nil {
		r.ticker.Resume()
	}
	if r.timer != nil {
		r.timer.Start()
	}
}

func (r *Runner) Paused() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.paused
}

// TimeLeft is how much of the run duration remains.
func (r *Runner) TimeLeft() time.Duration {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.timer.TimeLeft()
}
