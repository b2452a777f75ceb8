// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package geo

import (
	"regexp"
	"strings"
)

// cityAlias expands a common abbreviation to its full city name. Patterns
// are whole-word so "la" in "atlanta" is never rewritten.
type cityAlias struct {
	pattern     *regexp.Regexp
	replacement string
}

// cityAliases handles the abbreviations that show up in venue data:
// ticketing feeds write "NYC", users type "Vegas", some venues store
// "Washington, D.C.".
var cityAliases = []cityAlias{
	{regexp.MustCompile(`\bdc\b`), "district of columbia"},
	{regexp.MustCompile(`\bd\.c\.`), "district of columbia"},
	{regexp.MustCompile(`\bd c\b`), "district of columbia"},
	{regexp.MustCompile(`\bnyc\b`), "new york city"},
	{regexp.MustCompile(`\bny\b`), "new york"},
	{regexp.MustCompile(`\bn\.y\.`), "new york"},
	{regexp.MustCompile(`\bla\b`), "los angeles"},
	{regexp.MustCompile(`\bl\.a\.`), "los angeles"},
	{regexp.MustCompile(`\bsf\b`), "san francisco"},
	{regexp.MustCompile(`\bs\.f\.`), "san francisco"},
	{regexp.MustCompile(`\bchi\b`), "chicago"},
	{regexp.MustCompile(`\bmia\b`), "miami"},
	{regexp.MustCompile(`\bsea\b`), "seattle"},
	{regexp.MustCompile(`\bphx\b`), "phoenix"},
	{regexp.MustCompile(`\bden\b`), "denver"},
	{regexp.MustCompile(`\bvegas\b`), "las vegas"},
	{regexp.MustCompile(`\blv\b`), "las vegas"},
	{regexp.MustCompile(`\bl\.v\.`), "las vegas"},
}

var (
	multiSpace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\w\s]`)
)

// wholeNameAliases canonicalize names that are only ambiguous as a whole
// string. "Washington" by itself means the district, not the state, in
// venue data.
var wholeNameAliases = map[string]string{
	"washington": "washington district of columbia",
}

// NormalizeCity lowercases a city name, expands known abbreviations, and
// strips punctuation so variant spellings compare equal.
//
//	NormalizeCity("NYC")              == "new york city"
//	NormalizeCity("Washington, D.C.") == NormalizeCity("washington dc")
func NormalizeCity(city string) string {
	s := strings.ToLower(strings.TrimSpace(city))
	if s == "" {
		return ""
	}

	for _, alias := range cityAliases {
		s = alias.pattern.ReplaceAllString(s, alias.replacement)
	}

	s = multiSpace.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if canonical, ok := wholeNameAliases[s]; ok {
		return canonical
	}
	return s
}

// CitiesEqual reports whether two city names refer to the same city after
// normalization.
func CitiesEqual(a, b string) bool {
	return NormalizeCity(a) == NormalizeCity(b)
}

// CityMatches reports whether a candidate city satisfies a filter city.
// Matching is approximate: after normalization, containment in either
// direction counts, so "New York" matches "New York City".
func CityMatches(filter, candidate string) bool {
	f := NormalizeCity(filter)
	c := NormalizeCity(candidate)
	if f == "" || c == "" {
		return false
	}
	return strings.Contains(c, f) || strings.Contains(f, c)
}
