// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/corelate/internal/logging"
)

var (
	// ErrRunNotFound is returned when a run ID does not exist, or when no
	// run matches a selector such as "latest completed".
	ErrRunNotFound = errors.New("run not found")

	// ErrPairNotFound is returned when a similarity lookup matches no
	// stored pair for the requested run.
	ErrPairNotFound = errors.New("pair not found")
)

// closeWithLog closes a resource and logs any error. Used on cleanup
// paths where a Close failure should be visible but not fail the
// surrounding operation.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error. Used
// on error paths where a Close failure is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
