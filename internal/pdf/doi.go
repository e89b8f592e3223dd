// Package pdf finds DOIs in PDF files so they can be fed to the importer.
package pdf

import (
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/pubmanager/internal/identity"
)

// MaxPages is how many leading pages are searched. The DOI is almost
// always on the first page.
const MaxPages = 3

// 10.XXXX/... where XXXX is 4 to 9 digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// ExtractDOI returns the first DOI found in the leading pages of a PDF, or
// "" when there is none.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return firstDOI(r), nil
}

// ExtractDOIReader is ExtractDOI over an in-memory document.
func ExtractDOIReader(ra io.ReaderAt, size int64) (string, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return "", err
	}
	return firstDOI(r), nil
}

func firstDOI(r *pdf.Reader) string {
	pages := MaxPages
	if r.NumPage() < pages {
		pages = r.NumPage()
	}
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi
		}
	}
	return ""
}

// FindDOI returns the first plausible DOI in text, normalized.
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return identity.NormalizeDOI(match)
		}
	}
	return ""
}

// isValidDOI requires the 10. prefix and a non-empty suffix.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}
