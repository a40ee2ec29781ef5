// Package recorder stores simulation runs in a SQLite database.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/cfoust/voxphys/pkg/physics"
	"github.com/cfoust/voxphys/pkg/sim"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrNotStarted = fmt.Errorf("no run in progress")

type Recorder struct {
	db          *gorm.DB
	sampleEvery uint64
	run         *Run
}

// Open creates or opens the database at path. Every sampleEvery ticks the
// state of every body is stored.
func Open(path string, sampleEvery int) (*Recorder, error) {
	if sampleEvery <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %d", sampleEvery)
	}

	db, err := InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("could not open recording %s: %w", path, err)
	}

	return &Recorder{
		db:          db,
		sampleEvery: uint64(sampleEvery),
	}, nil
}

func (r *Recorder) DB() *gorm.DB {
	return r.db
}

// Start begins a new run and returns its identifier.
func (r *Recorder) Start(label string, bodies int) (string, error) {
	run := Run{
		UUID:    uuid.New().String(),
		Label:   label,
		Started: time.Now(),
		Bodies:  bodies,
	}

	if err := r.db.Create(&run).Error; err != nil {
		return "", err
	}

	r.run = &run
	log.Info().Str("run", run.UUID).Str("label", label).Msg("recording started")
	return run.UUID, nil
}

// Contacts stores the events that happened during tick.
func (r *Recorder) Contacts(tick uint64, events []physics.ContactEvent) error {
	if r.run == nil {
		return ErrNotStarted
	}
	if len(events) == 0 {
		return nil
	}

	rows := make([]Contact, len(events))
	for i, event := range events {
		rows[i] = Contact{
			RunID:    r.run.ID,
			Tick:     tick,
			Body:     event.Body.ID(),
			ImpulseX: event.Impulse[0],
			ImpulseY: event.Impulse[1],
			ImpulseZ: event.Impulse[2],
			RestingX: event.Axes[0],
			RestingY: event.Axes[1],
			RestingZ: event.Axes[2],
			Stepped:  event.Stepped,
			Bounced:  event.Bounced,
		}
	}

	return r.db.Create(&rows).Error
}

// Snapshot stores the body states in snapshot if its tick is due for
// sampling.
func (r *Recorder) Snapshot(snapshot physics.Snapshot) error {
	if r.run == nil {
		return ErrNotStarted
	}
	if snapshot.Tick%r.sampleEvery != 0 || len(snapshot.Bodies) == 0 {
		return nil
	}

	rows := make([]Sample, len(snapshot.Bodies))
	for i, body := range snapshot.Bodies {
		rows[i] = Sample{
			RunID:        r.run.ID,
			Tick:         snapshot.Tick,
			Body:         body.ID,
			X:            body.Base[0],
			Y:            body.Base[1],
			Z:            body.Base[2],
			VelocityX:    body.Velocity[0],
			VelocityY:    body.Velocity[1],
			VelocityZ:    body.Velocity[2],
			RatioInFluid: body.RatioInFluid,
			Asleep:       body.Asleep,
		}
	}

	return r.db.Create(&rows).Error
}

// Follow records everything runner publishes until ctx is done.
func (r *Recorder) Follow(ctx context.Context, runner *sim.Runner) error {
	snapshots := runner.Snapshots().Subscribe()
	defer snapshots.Done()
	events := runner.Events().Subscribe()
	defer events.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-snapshots.Recv():
			if err := r.Snapshot(snapshot); err != nil {
				return err
			}
		case batch := <-events.Recv():
			if err := r.Contacts(batch.Tick, batch.Events); err != nil {
				return err
			}
		}
	}
}

// Finish marks the current run as complete after ticks ticks.
func (r *Recorder) Finish(ticks uint64) error {
	if r.run == nil {
		return ErrNotStarted
	}

	now := time.Now()
	err := r.db.Model(r.run).Updates(map[string]interface{}{
		"finished": now,
		"ticks":    ticks,
	}).Error
	if err != nil {
		return err
	}

	log.Info().Str("run", r.run.UUID).Uint64("ticks", ticks).Msg("recording finished")
	r.run = nil
	return nil
}

// Load fetches a run along with everything recorded for it.
func (r *Recorder) Load(id string) (*Run, error) {
	var run Run
	err := r.db.
		Preload("Contacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("tick, id")
		}).
		Preload("Samples", func(db *gorm.DB) *gorm.DB {
			return db.Order("tick, body")
		}).
		Where("uuid = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
