// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package source provides file-backed rating sources for the similarity
pipeline.

Two formats are supported:

  - DelimitedSource: CSV, TSV, or any single-rune-separated text with a
    configurable column layout and optional header row
  - JSONLSource: newline-delimited JSON objects with user, item, and
    rating keys

Both implement similarity.RatingSource and share the same error contract:
the first malformed record aborts the stream with a
similarity.InputFormatError carrying the line number and the (scrubbed)
offending record. Nothing is skipped, coerced, or defaulted; a clean run
means every record parsed.

# Quick Start

	src, err := source.ForPath("ratings.csv", true)
	if err != nil {
	    return err
	}
	err = src.Each(ctx, func(r similarity.Rating) error {
	    return engineInput.Add(r)
	})

# Column Layouts

Delimited files whose columns are not user,item,rating can declare their
layout explicitly. Extra columns are ignored, so a MovieLens-style
user,item,rating,timestamp file parses without preprocessing:

	src, err := source.NewDelimitedSource("ratings.dat", source.DelimitedConfig{
	    Comma:     ':',
	    UserCol:   0,
	    ItemCol:   1,
	    RatingCol: 2,
	})

# Validity Rules

A record is malformed when it has fewer columns than the layout requires,
its rating does not parse as a finite float, its user or item identifier
is empty, or (JSONL) any of the three keys is absent. Non-finite ratings
are rejected at this boundary because a single NaN input would silently
poison every aggregate the item participates in.
*/
package source
