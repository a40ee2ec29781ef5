package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cfoust/voxphys/pkg/physics"
	"github.com/cfoust/voxphys/pkg/stream"

	"github.com/rs/zerolog/log"
)

func serveCommand(configs []string) error {
	s, err := loadScenario(configs)
	if err != nil {
		return err
	}
	defer s.Close()

	run := s.config.Run
	port := run.Stream.Port
	if CLI.Serve.Port > 0 {
		port = CLI.Serve.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := s.runner()
	runner.SetDuration(run.Duration)

	rec, err := s.recorder(CLI.Serve.Record, configs)
	if err != nil {
		return err
	}
	recorded := make(chan error, 1)
	if rec != nil {
		defer rec.Close()
		go func() {
			recorded <- rec.Follow(ctx, runner)
		}()
	}

	ingress := stream.NewIngress(runner, run.Stream.SnapshotsPerSecond)

	errc := make(chan error, 3)
	go func() {
		err := ingress.Serve(ctx, port)
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		errc <- err
	}()
	go func() {
		errc <- runner.Run(ctx)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err = <-errc:
		if err != nil {
			log.Error().Err(err).Msg("simulation stopped")
		}
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	ingress.Shutdown(shutdownCtx)
	cancel()

	if rec != nil {
		if err := <-recorded; err != nil {
			log.Error().Err(err).Msg("recording failed")
		}

		var ticks uint64
		runner.Do(func(w *physics.World) {
			ticks = w.Ticks()
		})
		if err := rec.Finish(ticks); err != nil {
			return err
		}
	}

	runner.Do(func(*physics.World) {
		s.report()
	})
	return err
}
