// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinRaters != 3 {
		t.Errorf("MinRaters = %d, want 3", cfg.MinRaters)
	}
	if cfg.MaxRaters != 10000 {
		t.Errorf("MaxRaters = %d, want 10000", cfg.MaxRaters)
	}
	if cfg.MinIntersection != 50 {
		t.Errorf("MinIntersection = %d, want 50", cfg.MinIntersection)
	}
	if cfg.PriorCount != 10.0 {
		t.Errorf("PriorCount = %v, want 10.0", cfg.PriorCount)
	}
	if cfg.PriorCorrelation != 0 {
		t.Errorf("PriorCorrelation = %v, want 0", cfg.PriorCorrelation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "negative min raters",
			mutate:    func(c *Config) { c.MinRaters = -1 },
			wantField: "min_raters",
		},
		{
			name:      "negative max raters",
			mutate:    func(c *Config) { c.MaxRaters = -5 },
			wantField: "max_raters",
		},
		{
			name: "min exceeds max",
			mutate: func(c *Config) {
				c.MinRaters = 100
				c.MaxRaters = 10
			},
			wantField: "min_raters",
		},
		{
			name:      "negative intersection",
			mutate:    func(c *Config) { c.MinIntersection = -1 },
			wantField: "min_intersection",
		},
		{
			name:      "negative prior count",
			mutate:    func(c *Config) { c.PriorCount = -0.5 },
			wantField: "prior_count",
		},
		{
			name:      "negative workers",
			mutate:    func(c *Config) { c.Workers = -2 },
			wantField: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigurationError.Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.MinRaters = 99
	clone.PriorCount = 123

	if cfg.MinRaters != 3 || cfg.PriorCount != 10.0 {
		t.Error("mutating a clone changed the original config")
	}
}
