// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import (
	"fmt"
	"runtime"
)

// Config holds the tunable parameters of a similarity run. All values are
// injected at engine construction; nothing in the pipeline falls back to
// process-wide constants.
type Config struct {
	// MinRaters is the minimum number of raters an item needs to enter the
	// computation. Items below it are statistically too sparse to score.
	// Default: 3.
	MinRaters int64 `json:"min_raters" koanf:"min_raters"`

	// MaxRaters is the maximum number of raters an item may have. Extremely
	// popular items dominate the pair fan-out while carrying little signal.
	// Default: 10000.
	MaxRaters int64 `json:"max_raters" koanf:"max_raters"`

	// MinIntersection is the minimum number of co-raters a pair needs to be
	// emitted. Pairs below it produce unstable estimates. Default: 50.
	MinIntersection int64 `json:"min_intersection" koanf:"min_intersection"`

	// PriorCount is the virtual co-rater count used to shrink correlations
	// toward PriorCorrelation. Larger values shrink harder. Default: 10.
	PriorCount float64 `json:"prior_count" koanf:"prior_count"`

	// PriorCorrelation is the shrinkage target for regularized correlation.
	// Default: 0 (neutral prior).
	PriorCorrelation float64 `json:"prior_correlation" koanf:"prior_correlation"`

	// Workers is the number of goroutines used for pair generation and
	// accumulation. Zero selects runtime.NumCPU(). Default: 0.
	Workers int `json:"workers" koanf:"workers"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MinRaters:        3,
		MaxRaters:        10000,
		MinIntersection:  50,
		PriorCount:       10.0,
		PriorCorrelation: 0,
		Workers:          0,
	}
}

// Validate checks the configuration and returns a ConfigurationError for
// the first value outside its sane range.
func (c *Config) Validate() error {
	if c.MinRaters < 0 {
		return &ConfigurationError{
			Field:  "min_raters",
			Reason: fmt.Sprintf("must be non-negative, got %d", c.MinRaters),
		}
	}
	if c.MaxRaters < 0 {
		return &ConfigurationError{
			Field:  "max_raters",
			Reason: fmt.Sprintf("must be non-negative, got %d", c.MaxRaters),
		}
	}
	if c.MinRaters > c.MaxRaters {
		return &ConfigurationError{
			Field:  "min_raters",
			Reason: fmt.Sprintf("must not exceed max_raters, got %d > %d", c.MinRaters, c.MaxRaters),
		}
	}
	if c.MinIntersection < 0 {
		return &ConfigurationError{
			Field:  "min_intersection",
			Reason: fmt.Sprintf("must be non-negative, got %d", c.MinIntersection),
		}
	}
	if c.PriorCount < 0 {
		return &ConfigurationError{
			Field:  "prior_count",
			Reason: fmt.Sprintf("must be non-negative, got %f", c.PriorCount),
		}
	}
	if c.Workers < 0 {
		return &ConfigurationError{
			Field:  "workers",
			Reason: fmt.Sprintf("must be non-negative, got %d", c.Workers),
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() Config {
	return *c
}

// workerCount resolves Workers, substituting NumCPU for the zero value.
func (c *Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
