package main

import (
	"strings"

	"github.com/cfoust/voxphys/pkg/config"
	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/physics"
	"github.com/cfoust/voxphys/pkg/recorder"
	"github.com/cfoust/voxphys/pkg/sim"
	"github.com/cfoust/voxphys/pkg/voxel"

	"github.com/rs/zerolog/log"
)

type scenario struct {
	config  *config.Config
	grid    *voxel.Grid
	world   *physics.World
	handles []physics.Handle
}

func loadScenario(configs []string) (*scenario, error) {
	cfg, err := config.Process(configs)
	if err != nil {
		return nil, err
	}

	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}

	world := physics.New(cfg.World(), grid.IsSolid, grid.IsFluid)
	handles, err := cfg.Populate(world)
	if err != nil {
		grid.Close()
		return nil, err
	}

	for i, handle := range handles {
		name := cfg.Bodies[i].Name
		body := world.Body(handle)
		body.OnCollide = func(impulse geom.Vector) {
			log.Debug().Str("body", name).Floats64("impulse", impulse[:]).Msg("collision")
		}
		body.OnStep = func() {
			log.Debug().Str("body", name).Msg("stepped up")
		}
	}

	log.Info().
		Str("generator", cfg.Terrain.Generator).
		Int("bodies", len(handles)).
		Msg("scenario loaded")

	return &scenario{
		config:  cfg,
		grid:    grid,
		world:   world,
		handles: handles,
	}, nil
}

// runner drives the world, paging terrain around the bodies if configured.
func (s *scenario) runner() *sim.Runner {
	run := s.config.Run
	runner := sim.NewRunner(s.world, run.TickMillis, run.Workers)

	retain := s.config.Terrain.Retain
	if retain.Every > 0 {
		runner.SetTerrain(s.grid, retain.Radius, retain.Every)
	}
	return runner
}

// recorder opens the recording database, preferring path over the
// configured one. It returns nil if neither is set.
func (s *scenario) recorder(path string, configs []string) (*recorder.Recorder, error) {
	if path == "" {
		path = s.config.Run.Recorder.Path
	}
	if path == "" {
		return nil, nil
	}

	r, err := recorder.Open(path, s.config.Run.Recorder.SampleEvery)
	if err != nil {
		return nil, err
	}

	label := strings.Join(configs, ",")
	if label == "" {
		label = "default"
	}
	if _, err := r.Start(label, s.world.Len()); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (s *scenario) report() {
	for i, handle := range s.handles {
		body := s.world.Body(handle)
		if body == nil {
			continue
		}
		position := body.Position()
		log.Info().
			Str("body", s.config.Bodies[i].Name).
			Floats64("position", position[:]).
			Floats64("velocity", body.Velocity[:]).
			Bool("asleep", body.Asleep()).
			Bool("inFluid", body.InFluid).
			Msg("final state")
	}
}

func (s *scenario) Close() {
	s.grid.Close()
}
