package identity

import (
	"reflect"
	"testing"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", "10.1000/XYZ", "10.1000/xyz"},
		{"https prefix", "https://doi.org/10.1000/xyz", "10.1000/xyz"},
		{"http prefix", "http://doi.org/10.1000/xyz", "10.1000/xyz"},
		{"mixed case prefix", "HTTPS://DOI.ORG/10.1000/Abc", "10.1000/abc"},
		{"surrounding whitespace", "  10.1000/xyz\n", "10.1000/xyz"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"other host kept", "https://dx.doi.org/10.1/a", "https://dx.doi.org/10.1/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDOI(tt.input); got != tt.want {
				t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDOI_PrefixIdempotent(t *testing.T) {
	inputs := []string{
		"10.1000/xyz",
		"https://doi.org/10.1038/NATURE12373",
		" http://doi.org/10.1/a ",
		"",
		"10.1002/(SICI)1097-4636",
	}
	for _, d := range inputs {
		n := NormalizeDOI(d)
		if again := NormalizeDOI("https://doi.org/" + n); again != n {
			t.Errorf("NormalizeDOI(prefix+%q) = %q, want %q", n, again, n)
		}
	}
}

func TestBareDOI(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10.1000/XYZ", "10.1000/XYZ"},
		{"https://doi.org/10.1038/NATURE12373", "10.1038/NATURE12373"},
		{" HTTP://DOI.ORG/10.1/a\t", "10.1/a"},
		{"https://dx.doi.org/10.1/a", "https://dx.doi.org/10.1/a"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BareDOI(tt.input); got != tt.want {
			t.Errorf("BareDOI(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSameDOI(t *testing.T) {
	if !SameDOI("10.1000/ABC", "https://doi.org/10.1000/abc") {
		t.Error("expected DOIs differing only by prefix and case to match")
	}
	if SameDOI("", "") {
		t.Error("empty DOIs must not match")
	}
	if SameDOI("10.1/a", "10.1/b") {
		t.Error("different DOIs must not match")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Jane Doe ", "Jane Doe"},
		{"Jane  Doe", "Jane  Doe"},
		{"jane doe", "jane doe"},
		{"\t", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSplitDOIs(t *testing.T) {
	got := SplitDOIs("10.1/a \n\t10.1/b   10.1/c\n")
	want := []string{"10.1/a", "10.1/b", "10.1/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitDOIs() = %v, want %v", got, want)
	}
	if got := SplitDOIs("   "); len(got) != 0 {
		t.Errorf("SplitDOIs(blank) = %v, want empty", got)
	}
}
