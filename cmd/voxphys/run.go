package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

func runCommand(configs []string) error {
	s, err := loadScenario(configs)
	if err != nil {
		return err
	}
	defer s.Close()

	ticks := s.config.Run.Ticks
	if CLI.Run.Ticks > 0 {
		ticks = CLI.Run.Ticks
	}

	rec, err := s.recorder(CLI.Run.Record, configs)
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
	}

	runner := s.runner()
	ctx := context.Background()

	start := time.Now()
	contacts := 0
	for i := 0; i < ticks; i++ {
		events, err := runner.Step(ctx)
		if err != nil {
			return err
		}
		contacts += len(events)

		if rec == nil {
			continue
		}

		tick := s.world.Ticks()
		if err := rec.Contacts(tick, events); err != nil {
			return err
		}
		if err := rec.Snapshot(s.world.Snapshot()); err != nil {
			return err
		}
	}

	log.Info().
		Int("ticks", ticks).
		Int("contacts", contacts).
		Dur("elapsed", time.Since(start)).
		Msg("simulation finished")
	s.report()

	if rec != nil {
		return rec.Finish(s.world.Ticks())
	}
	return nil
}
