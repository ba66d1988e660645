// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package sink

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	return rows
}

func TestCSVSink_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	s, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV failed: %v", err)
	}

	rec := testRecord("a", "b", 0.5)
	if err := s.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if s.Written() != 1 {
		t.Errorf("Written = %d, want 1", s.Written())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("output has %d rows, want header + 1", len(rows))
	}

	wantHeader := []string{
		"item", "item2",
		"correlation", "regularizedCorrelation", "cosineSimilarity", "jaccardSimilarity",
		"size", "numRaters", "numRaters2",
	}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v, want %v", rows[0], wantHeader)
	}

	want := []string{"a", "b", "0.5", "0.25", "0.9", "0.25", "10", "40", "60"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
}

func TestCSVSink_NonFiniteTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	s, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV failed: %v", err)
	}

	rec := testRecord("a", "b", math.NaN())
	rec.RegularizedCorrelation = math.Inf(-1)
	rec.CosineSimilarity = math.Inf(1)
	if err := s.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := readCSV(t, path)
	row := rows[1]
	if row[2] != "NaN" {
		t.Errorf("NaN rendered as %q", row[2])
	}
	if row[3] != "-Inf" {
		t.Errorf("-Inf rendered as %q", row[3])
	}
	if row[4] != "+Inf" {
		t.Errorf("+Inf rendered as %q", row[4])
	}
}

func TestCSVSink_QuotedIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	s, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV failed: %v", err)
	}

	// Identifiers containing the delimiter must survive a round-trip.
	rec := testRecord(`item,with,commas`, `item "quoted"`, 0.5)
	if err := s.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := readCSV(t, path)
	if rows[1][0] != `item,with,commas` || rows[1][1] != `item "quoted"` {
		t.Errorf("identifiers mangled: %q, %q", rows[1][0], rows[1][1])
	}
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.5, "0.5"},
		{-1, "-1"},
		{0, "0"},
		{1.0 / 3.0, "0.3333333333333333"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tc := range cases {
		if got := formatScore(tc.in); got != tc.want {
			t.Errorf("formatScore(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
