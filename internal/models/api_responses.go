// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability and caching information.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"items": [...], "has_more": true},
//	  "metadata": {
//	    "timestamp": "2026-08-28T12:00:00Z",
//	    "query_time_ms": 45,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Invalid feed mode",
//	    "details": {"field": "mode"}
//	  },
//	  "metadata": {"timestamp": "2026-08-28T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability and performance tracking.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - QueryTimeMS: Feed assembly time in milliseconds (0 if served from cache)
//   - Cached: Whether response was served from cache (omitted if false)
//   - RequestID: Correlation ID echoed from the X-Request-ID header
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
// Provides consistent error format across all API endpoints for better client handling.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - SOURCE_ERROR: All upstream feed sources failed
//   - NOT_FOUND: Resource doesn't exist
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FeedResponse wraps a ranked feed page with pagination hints.
//
// Fields:
//   - Items: Ranked, deduplicated feed items for the requested page
//   - HasMore: Whether more items exist beyond the current page
//   - Mode: Feed mode the page was assembled for
//   - Degraded: True when one or more sources were served from fallback
type FeedResponse struct {
	Items    []UnifiedFeedItem `json:"items"`
	HasMore  bool              `json:"has_more"`
	Mode     FeedMode          `json:"mode"`
	Degraded bool              `json:"degraded,omitempty"`
}
