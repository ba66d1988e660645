// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package logging provides centralized zerolog-based structured logging for Corelate.
//
// All components log through a single configured zerolog instance: JSON output
// for production, human-readable console output for development.
//
// # Quick Start
//
//	import "github.com/tomtom215/corelate/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("run_id", id).Msg("Run completed")
//	logging.Error().Err(err).Str("path", p).Msg("Source open failed")
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	runLogger := logging.WithComponent("runner")
//	runLogger.Info().Msg("Run started")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	logging.Info().Str("item", id).Int64("pairs", n).Msg("scored")  // Correct
//	logging.Info().Msgf("scored %d pairs for %s", n, id)            // Avoid
//
// Identifiers read from rating logs are untrusted input. Pass them through
// ScrubIdentifier before logging so control characters cannot forge log lines.
//
// # slog Adapter
//
// NewSlogLogger returns an slog.Logger backed by zerolog for libraries that
// require slog, such as sutureslog.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger is
// protected by sync.RWMutex for configuration changes.
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
package logging
