// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// TTLs per cached source. Social content goes stale fast, so the windows
// are short; profile data tolerates a little more.
const (
	TTLNetworkReviews     = 3 * time.Minute
	TTLPersonalizedEvents = 3 * time.Minute
	TTLNotifications      = 2 * time.Minute
	TTLChatPreviews       = 2 * time.Minute
	TTLUserProfile        = 5 * time.Minute
)

// GenerateKey creates a deterministic cache key from a method name and its
// parameters. Parameters are serialized to JSON and hashed so structurally
// equal requests map to the same key regardless of field ordering in code.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
