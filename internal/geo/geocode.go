// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/encorelive/feedengine/internal/config"
	"github.com/encorelive/feedengine/internal/logging"
	"github.com/encorelive/feedengine/internal/metrics"
)

// City pairs a canonical city name with its coordinates.
type City struct {
	Name  string
	Lat   float64
	Lng   float64
	State string
}

// Geocoder converts between city names and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (City, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (City, error)
}

// nearestCityMaxMiles bounds how far a coordinate may sit from a known
// city before a table-based reverse lookup gives up.
const nearestCityMaxMiles = 50.0

// nearestKnownCity returns the closest built-in city within the bound.
func nearestKnownCity(lat, lng float64) (City, bool) {
	var (
		best     City
		bestDist = nearestCityMaxMiles
		found    bool
	)
	for _, c := range knownCities {
		if d := DistanceMiles(lat, lng, c.Lat, c.Lng); d <= bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// ErrCityNotFound is returned when no coordinates are known for a city.
var ErrCityNotFound = fmt.Errorf("geo: city not found")

// knownCities covers the major US markets so the common case never needs a
// network round trip. Keys are normalized city names.
var knownCities = map[string]City{
	"new york":         {Name: "New York", Lat: 40.7128, Lng: -74.0060, State: "NY"},
	"new york city":    {Name: "New York", Lat: 40.7128, Lng: -74.0060, State: "NY"},
	"los angeles":      {Name: "Los Angeles", Lat: 34.0522, Lng: -118.2437, State: "CA"},
	"chicago":          {Name: "Chicago", Lat: 41.8781, Lng: -87.6298, State: "IL"},
	"houston":          {Name: "Houston", Lat: 29.7604, Lng: -95.3698, State: "TX"},
	"phoenix":          {Name: "Phoenix", Lat: 33.4484, Lng: -112.0740, State: "AZ"},
	"philadelphia":     {Name: "Philadelphia", Lat: 39.9526, Lng: -75.1652, State: "PA"},
	"san antonio":      {Name: "San Antonio", Lat: 29.4241, Lng: -98.4936, State: "TX"},
	"san diego":        {Name: "San Diego", Lat: 32.7157, Lng: -117.1611, State: "CA"},
	"dallas":           {Name: "Dallas", Lat: 32.7767, Lng: -96.7970, State: "TX"},
	"austin":           {Name: "Austin", Lat: 30.2672, Lng: -97.7431, State: "TX"},
	"washington district of columbia": {Name: "Washington DC", Lat: 38.9072, Lng: -77.0369, State: "DC"},
	"boston":           {Name: "Boston", Lat: 42.3601, Lng: -71.0589, State: "MA"},
	"denver":           {Name: "Denver", Lat: 39.7392, Lng: -104.9903, State: "CO"},
	"seattle":          {Name: "Seattle", Lat: 47.6062, Lng: -122.3321, State: "WA"},
	"san francisco":    {Name: "San Francisco", Lat: 37.7749, Lng: -122.4194, State: "CA"},
	"miami":            {Name: "Miami", Lat: 25.7617, Lng: -80.1918, State: "FL"},
	"atlanta":          {Name: "Atlanta", Lat: 33.7490, Lng: -84.3880, State: "GA"},
	"nashville":        {Name: "Nashville", Lat: 36.1627, Lng: -86.7816, State: "TN"},
	"portland":         {Name: "Portland", Lat: 45.5152, Lng: -122.6784, State: "OR"},
	"las vegas":        {Name: "Las Vegas", Lat: 36.1699, Lng: -115.1398, State: "NV"},
	"detroit":          {Name: "Detroit", Lat: 42.3314, Lng: -83.0458, State: "MI"},
	"memphis":          {Name: "Memphis", Lat: 35.1495, Lng: -90.0490, State: "TN"},
	"baltimore":        {Name: "Baltimore", Lat: 39.2904, Lng: -76.6122, State: "MD"},
	"milwaukee":        {Name: "Milwaukee", Lat: 43.0389, Lng: -87.9065, State: "WI"},
	"albuquerque":      {Name: "Albuquerque", Lat: 35.0844, Lng: -106.6504, State: "NM"},
	"sacramento":       {Name: "Sacramento", Lat: 38.5816, Lng: -121.4944, State: "CA"},
	"kansas city":      {Name: "Kansas City", Lat: 39.0997, Lng: -94.5786, State: "MO"},
	"omaha":            {Name: "Omaha", Lat: 41.2524, Lng: -95.9980, State: "NE"},
	"colorado springs": {Name: "Colorado Springs", Lat: 38.8339, Lng: -104.8214, State: "CO"},
	"raleigh":          {Name: "Raleigh", Lat: 35.7796, Lng: -78.6382, State: "NC"},
	"long beach":       {Name: "Long Beach", Lat: 33.7701, Lng: -118.1937, State: "CA"},
}

// LookupCity resolves a city from the built-in table. The name is normalized
// before lookup, so abbreviations resolve too.
func LookupCity(name string) (City, bool) {
	c, ok := knownCities[NormalizeCity(name)]
	return c, ok
}

// StaticGeocoder resolves cities from the built-in table only. It is the
// default when no external geocoding service is configured.
type StaticGeocoder struct{}

// Geocode implements Geocoder.
func (StaticGeocoder) Geocode(_ context.Context, city string) (City, error) {
	if c, ok := LookupCity(city); ok {
		return c, nil
	}
	return City{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
}

// ReverseGeocode implements Geocoder by nearest-city lookup in the
// built-in table.
func (StaticGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) (City, error) {
	if c, ok := nearestKnownCity(lat, lng); ok {
		return c, nil
	}
	return City{}, fmt.Errorf("%w: no city near %.4f,%.4f", ErrCityNotFound, lat, lng)
}

// Client is a rate-limited forward-geocoding client for a Nominatim-style
// search endpoint. The built-in table is consulted first; the network is
// only used for cities outside it.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient builds a geocoding client from configuration.
func NewClient(cfg config.GeocodeConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "feedengine/1.0").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:  logging.WithComponent("geocode"),
	}
}

// nominatimResult is the subset of the search response we read.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Geocode resolves a city name to coordinates, preferring the built-in
// table and falling back to the remote service under the rate limit.
func (c *Client) Geocode(ctx context.Context, city string) (City, error) {
	if hit, ok := LookupCity(city); ok {
		return hit, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return City{}, fmt.Errorf("geocode rate limit wait: %w", err)
	}

	start := time.Now()
	var results []nominatimResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      city,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get("/search")
	metrics.RecordGeocodeCall(time.Since(start), err)

	if err != nil {
		return City{}, fmt.Errorf("geocode request for %q: %w", city, err)
	}
	if resp.IsError() {
		return City{}, fmt.Errorf("geocode request for %q: status %d", city, resp.StatusCode())
	}
	if len(results) == 0 {
		return City{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return City{}, fmt.Errorf("geocode response for %q: bad latitude: %w", city, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return City{}, fmt.Errorf("geocode response for %q: bad longitude: %w", city, err)
	}

	c.logger.Debug().Str("city", city).Float64("lat", lat).Float64("lng", lng).
		Msg("Geocoded city via remote service")

	return City{Name: city, Lat: lat, Lng: lng}, nil
}

// reverseResult is the subset of the reverse-lookup response we read.
type reverseResult struct {
	Address struct {
		City  string `json:"city"`
		Town  string `json:"town"`
		State string `json:"state"`
	} `json:"address"`
}

// ReverseGeocode resolves coordinates to a city name, preferring the
// built-in table and falling back to the remote service under the rate
// limit.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (City, error) {
	if hit, ok := nearestKnownCity(lat, lng); ok {
		return hit, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return City{}, fmt.Errorf("geocode rate limit wait: %w", err)
	}

	start := time.Now()
	var result reverseResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":    strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":    strconv.FormatFloat(lng, 'f', -1, 64),
			"format": "json",
		}).
		SetResult(&result).
		Get("/reverse")
	metrics.RecordGeocodeCall(time.Since(start), err)

	if err != nil {
		return City{}, fmt.Errorf("reverse geocode %.4f,%.4f: %w", lat, lng, err)
	}
	if resp.IsError() {
		return City{}, fmt.Errorf("reverse geocode %.4f,%.4f: status %d", lat, lng, resp.StatusCode())
	}

	name := result.Address.City
	if name == "" {
		name = result.Address.Town
	}
	if name == "" {
		return City{}, fmt.Errorf("%w: no city near %.4f,%.4f", ErrCityNotFound, lat, lng)
	}

	return City{Name: name, Lat: lat, Lng: lng, State: result.Address.State}, nil
}
