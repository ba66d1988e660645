// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import "fmt"

// ConfigurationError reports a configuration value outside its sane range.
// Construction fails fast on it; a run never starts with a broken config.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// InputFormatError reports a malformed record at the source boundary.
// The pipeline fails fast on it and never coerces or skips bad records.
type InputFormatError struct {
	// Line is the 1-based line or record ordinal, 0 when unknown.
	Line int64

	// Record is the offending raw record, possibly truncated.
	Record string

	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *InputFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed rating record at line %d: %q: %v", e.Line, e.Record, e.Err)
	}
	return fmt.Sprintf("malformed rating record %q: %v", e.Record, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *InputFormatError) Unwrap() error {
	return e.Err
}
