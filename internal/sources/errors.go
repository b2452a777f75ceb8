// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package sources

import (
	"errors"
	"strings"
)

// ErrSourceUnavailable marks a primary aggregate call that is missing on
// the backend (undeployed function, schema drift, endpoint gone). Stores
// may wrap this sentinel; IsUnavailable also recognizes the common message
// shapes backends emit for the condition.
var ErrSourceUnavailable = errors.New("source unavailable")

// unavailableFragments are substrings backends use to report a missing
// function, relation, or route.
var unavailableFragments = []string{
	"does not exist",
	"not found",
	"no function matches",
	"undefined function",
}

// IsUnavailable reports whether err indicates the called aggregate is
// absent rather than failing, which is the trigger for the basic-query
// fallback path.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSourceUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range unavailableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
