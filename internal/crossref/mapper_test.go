package crossref

import (
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestMapWork_ExampleScenario(t *testing.T) {
	w := Work{
		DOI:       "10.1000/xyz",
		Type:      "journal-article",
		Title:     []string{"Example Paper"},
		Author:    []Person{{Given: "Jane", Family: "Doe"}},
		Published: &DateParts{DateParts: [][]FlexibleInt{{2023, 5}}},
	}
	rec, err := MapWork(w, fixedNow)
	if err != nil {
		t.Fatalf("MapWork() error = %v", err)
	}
	if rec.Date != "2023-05-01" {
		t.Errorf("Date = %q, want 2023-05-01", rec.Date)
	}
	if rec.Year() != "2023" {
		t.Errorf("Year() = %q, want 2023", rec.Year())
	}
	if rec.BibTeXKey != "Doe2023" {
		t.Errorf("BibTeXKey = %q, want Doe2023", rec.BibTeXKey)
	}
	if len(rec.Authors) != 1 || rec.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if rec.Type != "article" {
		t.Errorf("Type = %q, want article", rec.Type)
	}
	if rec.URL != "https://doi.org/10.1000/xyz" {
		t.Errorf("URL = %q, want synthesized doi.org URL", rec.URL)
	}
}

func TestMapWork_MissingTitle(t *testing.T) {
	for _, titles := range [][]string{nil, {}, {"  "}} {
		_, err := MapWork(Work{DOI: "10.1/a", Title: titles}, fixedNow)
		if !errors.Is(err, ErrMissingTitle) {
			t.Errorf("MapWork(title=%q) error = %v, want ErrMissingTitle", titles, err)
		}
	}
}

func TestMapWork_Fields(t *testing.T) {
	w := Work{
		DOI:            "10.1/chapter",
		Type:           "book-chapter",
		Title:          []string{"A Chapter"},
		Author:         []Person{{Family: "Solo"}, {}, {Given: "Only"}},
		Editor:         []Person{{Given: "Ed", Family: "One"}, {Given: "Ed", Family: "Two"}},
		ContainerTitle: []string{"The Book"},
		Created:        &DateParts{DateParts: [][]FlexibleInt{{2020, 2, 3}}},
		Issue:          "4",
		Volume:         "12",
		Page:           "1-10",
		ISBN:           []string{"", "978-3-16"},
		ISSN:           []string{"1234-5678"},
		Abstract:       "<jats:p>Some &amp; more <jats:italic>text</jats:italic></jats:p>",
		URL:            "http://dx.doi.org/10.1/chapter",
		EditionNumber:  "2",
	}
	rec, err := MapWork(w, fixedNow)
	if err != nil {
		t.Fatalf("MapWork() error = %v", err)
	}

	checks := map[string][2]string{
		"Type":      {rec.Type, "inbook"},
		"Date":      {rec.Date, "2020-02-03"},
		"Editor":    {rec.Editor, "Ed One, Ed Two"},
		"Booktitle": {rec.Booktitle, "The Book"},
		"Journal":   {rec.Journal, ""},
		"Number":    {rec.Number, "4"},
		"Issue":     {rec.Issue, "4"},
		"ISBN":      {rec.ISBN, "978-3-16"},
		"Abstract":  {rec.Abstract, "Some & more text"},
		"URL":       {rec.URL, "http://dx.doi.org/10.1/chapter"},
		"Edition":   {rec.Edition, "2"},
		"BibTeXKey": {rec.BibTeXKey, "Solo2020"},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", field, c[0], c[1])
		}
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Solo" || rec.Authors[1] != "Only" {
		t.Errorf("Authors = %v, want [Solo Only]", rec.Authors)
	}
}

func TestMapWork_ISSNFallbackAndNoDate(t *testing.T) {
	rec, err := MapWork(Work{Title: []string{"T"}, ISSN: []string{"1234-5678"}}, fixedNow)
	if err != nil {
		t.Fatalf("MapWork() error = %v", err)
	}
	if rec.ISBN != "1234-5678" {
		t.Errorf("ISBN = %q, want ISSN fallback", rec.ISBN)
	}
	if rec.Date != "2026-03-14" {
		t.Errorf("Date = %q, want today", rec.Date)
	}
	if rec.URL != "" {
		t.Errorf("URL = %q, want empty without DOI", rec.URL)
	}
	if rec.BibTeXKey != "Unknown2026" {
		t.Errorf("BibTeXKey = %q, want Unknown2026", rec.BibTeXKey)
	}
	if rec.Type != "misc" {
		t.Errorf("Type = %q, want misc", rec.Type)
	}
}

func TestFormatDateParts(t *testing.T) {
	tests := []struct {
		name  string
		parts [][]int
		want  string
	}{
		{"year", [][]int{{2024}}, "2024-01-01"},
		{"year month", [][]int{{2024, 7}}, "2024-07-01"},
		{"full", [][]int{{2024, 7, 9}}, "2024-07-09"},
		{"empty", nil, "2026-03-14"},
		{"empty inner", [][]int{{}}, "2026-03-14"},
		{"too many", [][]int{{2024, 1, 2, 3}}, "2026-03-14"},
		{"null year", [][]int{{0}}, "2026-03-14"},
		{"null day", [][]int{{2021, 4, 0}}, "2021-04-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDateParts(tt.parts, fixedNow); got != tt.want {
				t.Errorf("FormatDateParts() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeFor(t *testing.T) {
	tests := map[string]string{
		"journal-article":     "article",
		"book-chapter":        "inbook",
		"dissertation":        "phdthesis",
		"proceedings-article": "inproceedings",
		"standard":            "techreport",
		"peer-review":         "misc",
		"":                    "misc",
	}
	for in, want := range tests {
		if got := TypeFor(in); got != want {
			t.Errorf("TypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseCiteKey(t *testing.T) {
	tests := []struct {
		authors []string
		date    string
		want    string
	}{
		{[]string{"Jane Doe"}, "2023-05-01", "Doe2023"},
		{[]string{"Jean-Luc O'Neil"}, "2019-01-01", "ONeil2019"},
		{nil, "2020-01-01", "Unknown2020"},
	}
	for _, tt := range tests {
		if got := BaseCiteKey(tt.authors, tt.date); got != tt.want {
			t.Errorf("BaseCiteKey(%v, %q) = %q, want %q", tt.authors, tt.date, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"<p>a <b>b</b></p>", "a b"},
		{"  <jats:p>x &lt; y</jats:p>  ", "x < y"},
		{"<style>p{}</style>kept", "kept"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
