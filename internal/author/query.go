// Package author splits free-text author names into given and family parts
// and matches search queries against them.
package author

import "strings"

// Name is an author name split into given and family parts.
type Name struct {
	First string // given names, may be empty
	Last  string
}

// Parse splits a display name.
//
// Supported formats:
//   - "Yu"           → last="Yu"
//   - "Timothy C Yu" → first="Timothy C", last="Yu"
//   - "Yu, Timothy"  → first="Timothy", last="Yu"
func Parse(input string) Name {
	input = strings.TrimSpace(input)
	if input == "" {
		return Name{}
	}

	if idx := strings.Index(input, ","); idx > 0 {
		return Name{
			First: strings.TrimSpace(input[idx+1:]),
			Last:  strings.TrimSpace(input[:idx]),
		}
	}

	parts := strings.Fields(input)
	if len(parts) == 1 {
		return Name{Last: parts[0]}
	}
	return Name{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// BibTeX formats the name as "Last, First".
func (n Name) BibTeX() string {
	if n.First == "" {
		return n.Last
	}
	return n.Last + ", " + n.First
}

// Query is a parsed author search.
type Query Name

// ParseQuery parses a search string with the same rules as Parse.
func ParseQuery(input string) Query {
	return Query(Parse(input))
}

// Matches reports whether the query matches a display name. The family
// name must match case-insensitively; a given name in the query must be a
// case-insensitive prefix of the author's.
func (q Query) Matches(name string) bool {
	if q.Last == "" {
		return false
	}
	n := Parse(name)
	if !strings.EqualFold(q.Last, n.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(n.First), strings.ToLower(q.First))
}

// MatchesAny reports whether the query matches any of the names.
func (q Query) MatchesAny(names []string) bool {
	for _, n := range names {
		if q.Matches(n) {
			return true
		}
	}
	return false
}
