// Package identity canonicalizes author names and DOIs for comparison and lookup.
package identity

import (
	"regexp"
	"strings"
)

// doiURLPrefix matches a resolver URL in front of a DOI.
var doiURLPrefix = regexp.MustCompile(`(?i)^https?://doi\.org/`)

// NormalizeDOI returns the dedup key for a DOI: surrounding whitespace
// trimmed, a leading http(s)://doi.org/ removed (any case) and the rest
// lower-cased. Empty input yields the empty string.
func NormalizeDOI(raw string) string {
	doi := strings.TrimSpace(raw)
	doi = doiURLPrefix.ReplaceAllString(doi, "")
	return strings.ToLower(doi)
}

// BareDOI trims a DOI and drops a leading http(s)://doi.org/ resolver,
// keeping the case of the rest. This is the form sent to Crossref.
func BareDOI(raw string) string {
	return doiURLPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
}

// SameDOI reports whether two DOIs identify the same work. Empty DOIs never
// match anything, including each other.
func SameDOI(a, b string) bool {
	na := NormalizeDOI(a)
	if na == "" {
		return false
	}
	return na == NormalizeDOI(b)
}

// NormalizeName trims leading and trailing whitespace from an author name.
// Internal whitespace and case are kept: two names are the same author only
// if they are the same string.
func NormalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

// SplitDOIs splits free text into DOIs on any run of whitespace, keeping
// input order.
func SplitDOIs(input string) []string {
	return strings.Fields(input)
}
