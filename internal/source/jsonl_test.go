// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package source

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/corelate/internal/similarity"
)

func TestJSONLSource_Basic(t *testing.T) {
	contents := `{"user":"u1","item":"i1","rating":3.5}
{"user":"u2","item":"i1","rating":4}
{"user":"u1","item":"i2","rating":2}
`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	got := collect(t, src)
	want := []similarity.Rating{
		{User: "u1", Item: "i1", Rating: 3.5},
		{User: "u2", Item: "i1", Rating: 4},
		{User: "u1", Item: "i2", Rating: 2},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d ratings, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rating[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestJSONLSource_NumericIdentifiers(t *testing.T) {
	contents := `{"user":42,"item":7,"rating":3.5}
`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	got := collect(t, src)
	if len(got) != 1 {
		t.Fatalf("got %d ratings, want 1", len(got))
	}
	if got[0].User != "42" || got[0].Item != "7" {
		t.Errorf("identifiers = %q/%q, want 42/7", got[0].User, got[0].Item)
	}
}

func TestJSONLSource_ExtraKeysIgnored(t *testing.T) {
	contents := `{"user":"u1","item":"i1","rating":1,"timestamp":964982703}
`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	if got := collect(t, src); len(got) != 1 {
		t.Fatalf("got %d ratings, want 1", len(got))
	}
}

func TestJSONLSource_BlankLines(t *testing.T) {
	contents := `{"user":"u1","item":"i1","rating":1}

{"user":"u2","item":"i2","rating":2}
`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	got := collect(t, src)
	if len(got) != 2 {
		t.Fatalf("got %d ratings, want 2", len(got))
	}
}

func TestJSONLSource_NoTrailingNewline(t *testing.T) {
	contents := `{"user":"u1","item":"i1","rating":1}`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	if got := collect(t, src); len(got) != 1 {
		t.Fatalf("got %d ratings, want 1", len(got))
	}
}

func TestJSONLSource_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantLine int64
		wantIs   error // optional sentinel check
	}{
		{
			name:     "broken json",
			contents: "{\"user\":\"u1\"\n",
			wantLine: 1,
		},
		{
			name:     "missing rating",
			contents: `{"user":"u1","item":"i1"}` + "\n",
			wantLine: 1,
			wantIs:   errMissingRating,
		},
		{
			name:     "null rating",
			contents: `{"user":"u1","item":"i1","rating":null}` + "\n",
			wantLine: 1,
			wantIs:   errMissingRating,
		},
		{
			name:     "missing user",
			contents: `{"item":"i1","rating":3}` + "\n",
			wantLine: 1,
			wantIs:   errEmptyIdentifier,
		},
		{
			name:     "null item",
			contents: `{"user":"u1","item":null,"rating":3}` + "\n",
			wantLine: 1,
			wantIs:   errEmptyIdentifier,
		},
		{
			name:     "empty item",
			contents: `{"user":"u1","item":"","rating":3}` + "\n",
			wantLine: 1,
			wantIs:   errEmptyIdentifier,
		},
		{
			name:     "rating is a string",
			contents: `{"user":"u1","item":"i1","rating":"high"}` + "\n",
			wantLine: 1,
		},
		{
			name:     "boolean user",
			contents: `{"user":true,"item":"i1","rating":3}` + "\n",
			wantLine: 1,
		},
		{
			name:     "second line bad",
			contents: `{"user":"u1","item":"i1","rating":1}` + "\nnot json\n",
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "ratings.jsonl", tt.contents)
			src := NewJSONLSource(path)

			err := src.Each(context.Background(), func(similarity.Rating) error { return nil })
			if err == nil {
				t.Fatal("Each() = nil, want InputFormatError")
			}

			var ife *similarity.InputFormatError
			if !errors.As(err, &ife) {
				t.Fatalf("Each() error = %v (%T), want InputFormatError", err, err)
			}
			if ife.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", ife.Line, tt.wantLine)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Each() error = %v, want wrapped %v", err, tt.wantIs)
			}
		})
	}
}

func TestJSONLSource_LineTooLong(t *testing.T) {
	big := strings.Repeat("x", maxLineBytes+1)
	contents := `{"user":"u1","item":"` + big + `","rating":1}` + "\n"
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	err := src.Each(context.Background(), func(similarity.Rating) error { return nil })
	var ife *similarity.InputFormatError
	if !errors.As(err, &ife) {
		t.Fatalf("Each() error = %v (%T), want InputFormatError", err, err)
	}
}

func TestJSONLSource_CallbackError(t *testing.T) {
	contents := `{"user":"u1","item":"i1","rating":1}
{"user":"u2","item":"i2","rating":2}
`
	path := writeTempFile(t, "ratings.jsonl", contents)
	src := NewJSONLSource(path)

	sentinel := errors.New("stop here")
	var calls int
	err := src.Each(context.Background(), func(similarity.Rating) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Each() error = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestJSONLSource_ContextCancelled(t *testing.T) {
	path := writeTempFile(t, "ratings.jsonl", `{"user":"u1","item":"i1","rating":1}`+"\n")
	src := NewJSONLSource(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := src.Each(ctx, func(similarity.Rating) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Each() error = %v, want context.Canceled", err)
	}
}

func TestJSONLSource_FileNotFound(t *testing.T) {
	src := NewJSONLSource(filepath.Join(t.TempDir(), "missing.jsonl"))

	err := src.Each(context.Background(), func(similarity.Rating) error { return nil })
	if err == nil {
		t.Fatal("Each() = nil, want error")
	}
	if !strings.Contains(err.Error(), "open rating file") {
		t.Errorf("Each() error = %v, want open rating file wrap", err)
	}
}
