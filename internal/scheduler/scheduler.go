// Package scheduler runs the collect-then-classify pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is one pipeline pass.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a cron spec. A pass that is still running
// when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	job  Job
	ctx  context.Context
}

// New validates spec and registers job.
func New(spec string, job Job) (*Scheduler, error) {
	logger := cronLogger{log.With().Str("component", "scheduler").Logger()}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		spec: spec,
		job:  job,
		ctx:  context.Background(),
	}

	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits
// for a running pass to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()

	entries := s.cron.Entries()
	if len(entries) > 0 {
		log.Info().Str("schedule", s.spec).Time("next", entries[0].Next).Msg("Scheduler started")
	}

	<-ctx.Done()

	log.Info().Msg("Scheduler stopping, waiting for running pass")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) runJob() {
	start := time.Now()
	logger := log.With().Str("pass_id", uuid.NewString()).Logger()
	logger.Info().Msg("Pipeline pass starting")

	if err := s.job(logger.WithContext(s.ctx)); err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Pipeline pass failed")
		return
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("Pipeline pass finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
