package crossref

import (
	"fmt"
	"strings"
	"time"

	"github.com/matsen/pubmanager/internal/publication"
)

// typeMap maps Crossref work types onto publication types.
var typeMap = map[string]string{
	"journal-article":     "article",
	"book":                "book",
	"book-chapter":        "inbook",
	"book-section":        "incollection",
	"proceedings-article": "inproceedings",
	"proceedings":         "proceedings",
	"dissertation":        "phdthesis",
	"report":              "techreport",
	"dataset":             "misc",
	"standard":            "techreport",
	"monograph":           "book",
	"reference-entry":     "incollection",
	"posted-content":      "misc",
}

// TypeFor maps a Crossref work type to a publication type, falling back to
// misc.
func TypeFor(crossrefType string) string {
	if t, ok := typeMap[crossrefType]; ok {
		return t
	}
	return publication.DefaultType
}

// MapWork converts a Crossref work into a publication record. The BibTeX key
// is the collision-free base only; callers make it unique. now supplies the
// date when the work carries none.
func MapWork(w Work, now time.Time) (publication.Record, error) {
	if len(w.Title) == 0 || strings.TrimSpace(w.Title[0]) == "" {
		return publication.Record{}, ErrMissingTitle
	}

	rec := publication.Record{
		Title:     w.Title[0],
		DOI:       w.DOI,
		Type:      TypeFor(w.Type),
		Authors:   personNames(w.Author),
		Editor:    strings.Join(personNames(w.Editor), ", "),
		Volume:    w.Volume.String(),
		Issue:     w.Issue.String(),
		Number:    w.Issue.String(),
		Pages:     w.Page.String(),
		Publisher: w.Publisher,
		Abstract:  StripHTML(w.Abstract),
		Edition:   w.EditionNumber.String(),
	}

	switch {
	case w.Published != nil:
		rec.Date = FormatDateParts(w.Published.Ints(), now)
	case w.Created != nil:
		rec.Date = FormatDateParts(w.Created.Ints(), now)
	default:
		rec.Date = now.Format("2006-01-02")
	}

	if len(w.ContainerTitle) > 0 && w.ContainerTitle[0] != "" {
		if rec.Type == "article" {
			rec.Journal = w.ContainerTitle[0]
		} else {
			rec.Booktitle = w.ContainerTitle[0]
		}
	}

	rec.ISBN = firstNonEmpty(w.ISBN)
	if rec.ISBN == "" {
		rec.ISBN = firstNonEmpty(w.ISSN)
	}

	switch {
	case w.URL != "":
		rec.URL = w.URL
	case w.DOI != "":
		rec.URL = "https://doi.org/" + w.DOI
	}

	rec.BibTeXKey = BaseCiteKey(rec.Authors, rec.Date)
	return rec, nil
}

// FormatDateParts renders the first date-parts entry as YYYY-MM-DD. One,
// two or three parts fill month and day with 01 as needed; a zero part
// ends the date there. Anything else, including a zero year, yields now's
// date.
func FormatDateParts(parts [][]int, now time.Time) string {
	if len(parts) == 0 || len(parts[0]) == 0 || parts[0][0] == 0 {
		return now.Format("2006-01-02")
	}
	p := parts[0]
	for i, v := range p {
		if v == 0 {
			p = p[:i]
			break
		}
	}
	switch len(p) {
	case 1:
		return fmt.Sprintf("%d-01-01", p[0])
	case 2:
		return fmt.Sprintf("%d-%02d-01", p[0], p[1])
	case 3:
		return fmt.Sprintf("%d-%02d-%02d", p[0], p[1], p[2])
	}
	return now.Format("2006-01-02")
}

// BaseCiteKey builds "<LastNameOfFirstAuthor><Year>" with everything but
// ASCII letters and digits removed. Without authors the name is "Unknown".
func BaseCiteKey(authors []string, date string) string {
	lastName := "Unknown"
	if len(authors) > 0 {
		if parts := strings.Fields(authors[0]); len(parts) > 0 {
			lastName = parts[len(parts)-1]
		}
	}
	year := date
	if len(year) > 4 {
		year = year[:4]
	}
	return sanitizeForCiteKey(lastName + year)
}

// sanitizeForCiteKey keeps ASCII letters and digits.
func sanitizeForCiteKey(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// personNames joins given and family names; people with neither are
// skipped.
func personNames(people []Person) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		var parts []string
		if p.Given != "" {
			parts = append(parts, p.Given)
		}
		if p.Family != "" {
			parts = append(parts, p.Family)
		}
		if len(parts) > 0 {
			names = append(names, strings.Join(parts, " "))
		}
	}
	return names
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
