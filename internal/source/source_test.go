// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package source

import (
	"strings"
	"testing"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantType  string
		wantComma rune
	}{
		{name: "csv", path: "ratings.csv", wantType: "delimited", wantComma: ','},
		{name: "tsv", path: "ratings.tsv", wantType: "delimited", wantComma: '\t'},
		{name: "jsonl", path: "ratings.jsonl", wantType: "jsonl"},
		{name: "ndjson", path: "events.ndjson", wantType: "jsonl"},
		{name: "uppercase extension", path: "RATINGS.CSV", wantType: "delimited", wantComma: ','},
		{name: "nested path", path: "/data/in/ratings.csv", wantType: "delimited", wantComma: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ForPath(tt.path, false)
			if err != nil {
				t.Fatalf("ForPath(%q) error = %v", tt.path, err)
			}

			switch tt.wantType {
			case "delimited":
				ds, ok := src.(*DelimitedSource)
				if !ok {
					t.Fatalf("ForPath(%q) = %T, want *DelimitedSource", tt.path, src)
				}
				if ds.cfg.Comma != tt.wantComma {
					t.Errorf("Comma = %q, want %q", ds.cfg.Comma, tt.wantComma)
				}
			case "jsonl":
				if _, ok := src.(*JSONLSource); !ok {
					t.Fatalf("ForPath(%q) = %T, want *JSONLSource", tt.path, src)
				}
			}
		})
	}
}

func TestForPath_Header(t *testing.T) {
	src, err := ForPath("ratings.csv", true)
	if err != nil {
		t.Fatalf("ForPath() error = %v", err)
	}
	ds, ok := src.(*DelimitedSource)
	if !ok {
		t.Fatalf("ForPath() = %T, want *DelimitedSource", src)
	}
	if !ds.cfg.Header {
		t.Error("Header = false, want true")
	}
}

func TestForPath_Unsupported(t *testing.T) {
	for _, path := range []string{"ratings.txt", "ratings", "ratings.parquet"} {
		t.Run(path, func(t *testing.T) {
			_, err := ForPath(path, false)
			if err == nil {
				t.Fatal("ForPath() = nil, want error")
			}
			if !strings.Contains(err.Error(), "unsupported rating file extension") {
				t.Errorf("ForPath() error = %v, want unsupported extension message", err)
			}
		})
	}
}
