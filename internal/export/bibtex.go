// Package export writes publications as BibTeX.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/pubmanager/internal/author"
	"github.com/matsen/pubmanager/internal/publication"
)

// ToBibTeX converts a publication record to a BibTeX entry. The entry type
// comes from the publication type registry.
func ToBibTeX(rec publication.Record) string {
	pt := publication.TypeOrDefault(rec.Type)
	key := rec.BibTeXKey
	if key == "" {
		key = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", pt.BibTeXType, key)

	if len(rec.Authors) > 0 {
		field(&b, "author", formatAuthors(rec.Authors))
	}
	if rec.Editor != "" {
		field(&b, "editor", formatAuthors(strings.Split(rec.Editor, ",")))
	}
	field(&b, "title", escapeLatex(rec.Title))

	optional := []struct{ name, value string }{
		{"journal", rec.Journal},
		{"booktitle", rec.Booktitle},
		{"year", rec.Year()},
		{"month", month(rec.Date)},
		{"volume", rec.Volume},
		{"number", rec.Number},
		{"pages", rec.Pages},
		{"publisher", rec.Publisher},
		{"edition", rec.Edition},
		{"isbn", rec.ISBN},
	}
	for _, f := range optional {
		if f.value != "" {
			field(&b, f.name, escapeLatex(f.value))
		}
	}

	// DOI and URL are written verbatim.
	if rec.DOI != "" {
		field(&b, "doi", rec.DOI)
	}
	if rec.URL != "" {
		field(&b, "url", rec.URL)
	}
	if rec.Abstract != "" {
		field(&b, "abstract", escapeLatex(rec.Abstract))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple records, separated by blank lines.
func ToBibTeXList(recs []publication.Record) string {
	entries := make([]string, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, ToBibTeX(r))
	}
	return strings.Join(entries, "\n")
}

func field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s = {%s},\n", name, value)
}

// month returns the numeric month of an ISO date without leading zero.
func month(date string) string {
	if len(date) < 7 || date[4] != '-' {
		return ""
	}
	m, err := strconv.Atoi(date[5:7])
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	return strconv.Itoa(m)
}

// formatAuthors formats names BibTeX style: "Last, First and Last, First".
func formatAuthors(names []string) string {
	var formatted []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		formatted = append(formatted, escapeLatex(author.Parse(n).BibTeX()))
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters. Backslash goes first so
// later escapes are not doubled.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
