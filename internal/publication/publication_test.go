package publication

import "testing"

func TestTypes_Registry(t *testing.T) {
	all := Types()
	if len(all) != 24 {
		t.Fatalf("expected 24 publication types, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Slug >= all[i].Slug {
			t.Errorf("Types() not sorted at %d: %s >= %s", i, all[i-1].Slug, all[i].Slug)
		}
	}

	bt, ok := LookupType("bachelorthesis")
	if !ok {
		t.Fatal("bachelorthesis not registered")
	}
	if bt.BibTeXType != "mastersthesis" {
		t.Errorf("bachelorthesis BibTeX type = %q, want mastersthesis", bt.BibTeXType)
	}

	if got := TypeOrDefault("nonsense").Slug; got != DefaultType {
		t.Errorf("TypeOrDefault(nonsense) = %q, want %q", got, DefaultType)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"published", "forthcoming", "in_press", "submitted", "in_review"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseStatus("retracted"); err == nil {
		t.Error("ParseStatus(retracted) expected error")
	}
}

func TestYearFromDate(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2023-05-01", "2023"},
		{"1999", "1999"},
		{"99", ""},
		{"abcd-01-01", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := YearFromDate(tt.date); got != tt.want {
			t.Errorf("YearFromDate(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestRecord_MetaSkipsEmpty(t *testing.T) {
	r := Record{
		Title:   "Example",
		Type:    "article",
		Date:    "2023-05-01",
		DOI:     "10.1000/xyz",
		Journal: "Nature",
		Authors: []string{"Jane Doe"},
	}
	meta := r.Meta()

	if meta[MetaYear] != "2023" {
		t.Errorf("pm_year = %q, want 2023", meta[MetaYear])
	}
	if _, ok := meta[MetaVolume]; ok {
		t.Error("empty volume should not be in meta")
	}
	if _, ok := meta[MetaLegacyAuthors]; ok {
		t.Error("authors must not be written as a meta string")
	}

	back := RecordFromMeta("Example", meta)
	if back.Journal != "Nature" || back.DOI != "10.1000/xyz" || back.Date != "2023-05-01" {
		t.Errorf("RecordFromMeta lost fields: %+v", back)
	}
}
