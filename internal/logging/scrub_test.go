// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package logging

import (
	"strings"
	"testing"
)

func TestScrubIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean", "movie-42", "movie-42"},
		{"empty", "", ""},
		{"newline", "user\ninjected=true", "user?injected=true"},
		{"carriage_return", "a\r\nb", "a??b"},
		{"tab", "a\tb", "a?b"},
		{"delete_char", "a\x7fb", "a?b"},
		{"unicode_kept", "fiLm-été", "fiLm-été"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ScrubIdentifier(tt.input); got != tt.expected {
				t.Errorf("ScrubIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestScrubIdentifier_Truncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxIdentifierLen+50)
	got := ScrubIdentifier(long)

	if len(got) != maxIdentifierLen+3 {
		t.Errorf("expected length %d, got %d", maxIdentifierLen+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation suffix, got %q", got[len(got)-8:])
	}
}

func TestScrubRecord(t *testing.T) {
	t.Parallel()

	got := ScrubRecord("user1\tmovie1\t5.0\n")
	if got != "user1?movie1?5.0?" {
		t.Errorf("ScrubRecord() = %q, want %q", got, "user1?movie1?5.0?")
	}

	long := strings.Repeat("y", 600)
	if got := ScrubRecord(long); len(got) != 515 {
		t.Errorf("expected record capped at 515 chars, got %d", len(got))
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q, want unchanged", got)
	}
	if got := truncateString("exactly-ten", 11); got != "exactly-ten" {
		t.Errorf("truncateString() = %q, want unchanged at limit", got)
	}
	if got := truncateString("overflowing", 4); got != "over..." {
		t.Errorf("truncateString() = %q, want %q", got, "over...")
	}
}
