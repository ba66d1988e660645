// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package services provides Suture service wrappers for various application components.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/corelate/internal/models"
)

// RunTrigger starts a similarity recompute if one is not already active.
// This allows the service to work with the runner without circular imports.
//
// Satisfied by *runner.Runner: Trigger returns the run record, whether a
// new run was started, and an error if the run could not be created. The
// run itself executes asynchronously.
type RunTrigger interface {
	Trigger(ctx context.Context) (*models.Run, bool, error)
}

// ComputeServiceConfig holds configuration for the compute scheduler.
type ComputeServiceConfig struct {
	// RunOnStart triggers a recompute when the service starts.
	RunOnStart bool

	// Interval is how often to trigger periodic recomputes.
	// Zero or negative disables the schedule; the service then only
	// handles the startup run and stays alive for API-triggered runs.
	Interval time.Duration
}

// ComputeService schedules similarity recomputes under Suture supervision.
// It triggers runs on startup and on a fixed interval; the runner itself
// serializes runs, so an overlapping trigger is a no-op.
type ComputeService struct {
	runs   RunTrigger
	config ComputeServiceConfig
	logger zerolog.Logger
	name   string
}

// NewComputeService creates a new compute scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewComputeService(runs RunTrigger, cfg ComputeServiceConfig, logger zerolog.Logger) *ComputeService {
	return &ComputeService{
		runs:   runs,
		config: cfg,
		logger: logger.With().Str("service", "compute").Logger(),
		name:   "compute-scheduler",
	}
}

// Serve implements the suture.Service interface.
// It manages the recompute schedule for the similarity runner.
func (s *ComputeService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_start", s.config.RunOnStart).
		Dur("interval", s.config.Interval).
		Msg("compute scheduler starting")

	if s.config.RunOnStart {
		s.trigger(ctx, "startup")
	}

	if s.config.Interval <= 0 {
		// Periodic recomputes disabled; runs can still be triggered
		// through the API.
		s.logger.Info().Msg("periodic recompute disabled")
		<-ctx.Done()
		s.logger.Info().Msg("compute scheduler shutting down")
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info().Msg("compute scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("compute scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.trigger(ctx, "interval")
		}
	}
}

// trigger kicks off a recompute and logs the outcome. Trigger failures are
// logged, not returned, so a transient database error does not crash the
// scheduler and lose the ticker.
func (s *ComputeService) trigger(ctx context.Context, reason string) {
	run, started, err := s.runs.Trigger(ctx)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).
			Str("reason", reason).
			Msg("recompute trigger failed (will retry on schedule)")
	case !started:
		s.logger.Debug().
			Str("reason", reason).
			Str("active_run_id", run.ID.String()).
			Msg("recompute already in progress, skipping")
	default:
		s.logger.Info().
			Str("reason", reason).
			Str("run_id", run.ID.String()).
			Msg("recompute started")
	}
}

// String returns the service name for logging.
func (s *ComputeService) String() string {
	return s.name
}
