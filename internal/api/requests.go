// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Request validation structs with go-playground/validator tags. These are
// populated from query and path parameters and validated before processing.
//
// The validation tags follow the go-playground/validator v10 syntax:
//   - required: field must be present and non-zero
//   - min,max: numeric or string length bounds
//   - oneof: value must be one of the specified options
//   - omitempty: skip validation if field is empty/zero
//
// Example usage:
//
//	req := NeighborsRequest{
//	    Item:    r.PathValue("item"),
//	    Measure: r.URL.Query().Get("measure"),
//	    Limit:   getIntParam(r, "limit", 20),
//	}
//	if apiErr := validateRequest(&req); apiErr != nil {
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package api

// NeighborsRequest represents the validated parameters for the
// /items/{item}/neighbors endpoint.
//
// Fields:
//   - Item: Item identifier from the URL path
//   - Measure: Ranking measure (defaults to the index measure)
//   - Limit: Maximum neighbors to return (1-1000, clamped by config)
type NeighborsRequest struct {
	Item    string `validate:"required,max=256"`
	Measure string `validate:"omitempty,oneof=correlation regularized cosine jaccard"`
	Limit   int    `validate:"min=1,max=1000"`
}

// PairRequest represents the validated query parameters for the /pairs
// endpoint. Pair lookup is symmetric; a and b may be given in either order.
type PairRequest struct {
	ItemA string `validate:"required,max=256"`
	ItemB string `validate:"required,max=256"`
}

// ListRunsRequest represents the validated query parameters for the /runs
// endpoint.
//
// Fields:
//   - Limit: Results per page (1-1000, clamped by config)
//   - Offset: Offset into the run history, newest first (0-1000000)
type ListRunsRequest struct {
	Limit  int `validate:"min=1,max=1000"`
	Offset int `validate:"min=0,max=1000000"`
}
