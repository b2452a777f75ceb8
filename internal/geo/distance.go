// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

// Package geo provides the geographic helpers used by radius filters:
// great-circle distance, cheap bounding-box prefilters, city name
// normalization, and forward geocoding of city names to coordinates.
package geo

import "math"

// earthRadiusMiles is the Earth's mean radius in statute miles.
const earthRadiusMiles = 3959.0

// milesPerDegreeLat is the approximate north-south span of one degree of
// latitude, used for bounding-box prefilters.
const milesPerDegreeLat = 69.0

// boundingBoxMargin widens prefilter boxes so the exact distance check never
// loses venues sitting right on the radius edge.
const boundingBoxMargin = 1.1

// DistanceMiles returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180.0)
}

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns a bounding box covering radiusMiles around the center,
// padded by a safety margin. It is a coarse prefilter only; callers must
// still verify candidates with DistanceMiles.
func BoxAround(lat, lng, radiusMiles float64) BoundingBox {
	latDelta := (radiusMiles / milesPerDegreeLat) * boundingBoxMargin
	lngDelta := (radiusMiles / (milesPerDegreeLat * math.Cos(toRadians(lat)))) * boundingBoxMargin

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

// Contains reports whether the coordinate falls inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lng >= b.MinLng && lng <= b.MaxLng
}
