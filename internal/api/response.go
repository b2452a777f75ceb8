// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package api provides the HTTP surface of the feed engine: a Chi router,
// request decoding and validation, and a standardized JSON response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/models"
)

// Error codes returned in the response envelope.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	ErrCodeSourceError      = "SOURCE_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// respondJSON writes a success envelope around data. queryTime is the feed
// assembly duration; zero is omitted from the payload.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}, queryTime time.Duration) {
	resp := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTime.Milliseconds(),
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	}
	writeEnvelope(w, r, status, resp)
}

// respondError writes an error envelope with the given code and message.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	resp := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	writeEnvelope(w, r, status, resp)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// Headers are already out; all we can do is log.
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
