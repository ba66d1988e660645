// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It integrates with the application's API error format for consistent
// error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom "finite" validator for float fields that must not be NaN or Inf
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion matching the application's error format
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type NeighborsRequest struct {
//	    Limit   int    `validate:"min=1,max=1000"`
//	    Measure string `validate:"omitempty,oneof=correlation regularized cosine jaccard"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req NeighborsRequest
//	    // ... populate from query parameters ...
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - uuid: Valid UUID format
//
// Numeric validations:
//   - gte=n / lte=n / gt=n / lt=n: Range bounds
//   - min=n / max=n: Minimum / maximum value
//   - finite: Must not be NaN or +/-Inf (custom; use for rating values,
//     where "required" would wrongly reject a legitimate 0)
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "100" for max=100)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to API error format
//	}
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Rating must be a finite number",
//	    "details": {"field": "Rating", "tag": "finite", "value": null}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "User: User is required; Item: Item is required",
//	    "details": {
//	        "fields": [
//	            {"field": "User", "tag": "required", "message": "..."},
//	            {"field": "Item", "tag": "required", "message": "..."}
//	        ]
//	    }
//	}
//
// # Error Message Translation
//
// Human-readable messages are generated for common validation tags:
//
//	required  -> "User is required"
//	finite    -> "Rating must be a finite number"
//	min=1     -> "Limit must be at least 1"
//	max=256   -> "Item must be at most 256 characters"
//	gte=1     -> "Limit must be greater than or equal to 1"
//	lte=1000  -> "Limit must be less than or equal to 1000"
//	oneof=a b -> "Measure must be one of: a b"
//
// # Struct Tag Examples
//
// Rating event validation:
//
//	type RatingEvent struct {
//	    User   string  `validate:"required,max=256"`
//	    Item   string  `validate:"required,max=256"`
//	    Rating float64 `validate:"finite"`
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # Performance
//
// The validator caches struct reflection information:
//   - First validation of a struct type: ~1ms (reflection + caching)
//   - Subsequent validations: ~10us (cached)
//   - Memory: ~500 bytes per cached struct type
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - internal/models: Validated domain structs
//   - github.com/go-playground/validator/v10: Underlying library
package validation
