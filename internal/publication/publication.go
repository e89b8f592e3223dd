// Package publication defines the publication entity: its bibliographic
// record, type registry, status values and persisted attribute keys.
package publication

import (
	"fmt"
	"strconv"
)

// Kind is the entity kind under which publications are stored.
const Kind = "publication"

// Entity (post) states. Trashed publications are invisible to dedup.
const (
	PostPublish = "publish"
	PostDraft   = "draft"
	PostPending = "pending"
	PostPrivate = "private"
	PostTrash   = "trash"
)

// LiveStatuses are the entity states searched when deduplicating by DOI.
var LiveStatuses = []string{PostPublish, PostDraft, PostPending, PostPrivate}

// Status is the editorial state of a publication.
type Status string

const (
	StatusPublished   Status = "published"
	StatusForthcoming Status = "forthcoming"
	StatusInPress     Status = "in_press"
	StatusSubmitted   Status = "submitted"
	StatusInReview    Status = "in_review"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPublished, StatusForthcoming, StatusInPress, StatusSubmitted, StatusInReview:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid publication status: %q", s)
}

// Attribute keys stored on publication entities.
const (
	MetaType        = "pm_type"
	MetaBibTeXKey   = "pm_bibtex_key"
	MetaDate        = "pm_date"
	MetaYear        = "pm_year"
	MetaEditor      = "pm_editor"
	MetaDOI         = "pm_doi"
	MetaURL         = "pm_url"
	MetaVolume      = "pm_volume"
	MetaNumber      = "pm_number"
	MetaIssue       = "pm_issue"
	MetaPages       = "pm_pages"
	MetaPublisher   = "pm_publisher"
	MetaJournal     = "pm_journal"
	MetaBooktitle   = "pm_booktitle"
	MetaISBN        = "pm_isbn"
	MetaAbstract    = "pm_abstract"
	MetaEdition     = "pm_edition"
	MetaStatus      = "pm_status"
	MetaImportID    = "pm_import_id"
	MetaLastUpdated = "pm_last_updated"

	// MetaLegacyAuthors is the pre-taxonomy comma-separated author string.
	MetaLegacyAuthors = "pm_authors"
	// MetaLegacyAuthorList is the repeatable one-name-per-entry format that
	// briefly followed the comma string. It has no migration path.
	MetaLegacyAuthorList = "pm_author"
)

// Record is a publication's bibliographic data in the internal schema.
type Record struct {
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	BibTeXKey string   `json:"bibtex_key"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Authors   []string `json:"authors"`
	Editor    string   `json:"editor,omitempty"`
	DOI       string   `json:"doi,omitempty"`
	URL       string   `json:"url,omitempty"`
	Journal   string   `json:"journal,omitempty"`
	Booktitle string   `json:"booktitle,omitempty"`
	Volume    string   `json:"volume,omitempty"`
	Number    string   `json:"number,omitempty"`
	Issue     string   `json:"issue,omitempty"`
	Pages     string   `json:"pages,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	ISBN      string   `json:"isbn,omitempty"`
	Abstract  string   `json:"abstract,omitempty"`
	Edition   string   `json:"edition,omitempty"`
}

// Year returns the publication year derived from Date.
func (r Record) Year() string {
	return YearFromDate(r.Date)
}

// Meta returns the record's non-empty fields keyed by attribute key.
// Authors are not included; they live in the author registry.
func (r Record) Meta() map[string]string {
	all := map[string]string{
		MetaType:      r.Type,
		MetaBibTeXKey: r.BibTeXKey,
		MetaDate:      r.Date,
		MetaEditor:    r.Editor,
		MetaDOI:       r.DOI,
		MetaURL:       r.URL,
		MetaVolume:    r.Volume,
		MetaNumber:    r.Number,
		MetaIssue:     r.Issue,
		MetaPages:     r.Pages,
		MetaPublisher: r.Publisher,
		MetaJournal:   r.Journal,
		MetaBooktitle: r.Booktitle,
		MetaISBN:      r.ISBN,
		MetaAbstract:  r.Abstract,
		MetaEdition:   r.Edition,
	}
	out := make(map[string]string, len(all)+1)
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	if y := r.Year(); y != "" {
		out[MetaYear] = y
	}
	return out
}

// RecordFromMeta rebuilds a record from stored attributes. Authors are left
// empty for the caller to fill from the registry.
func RecordFromMeta(title string, meta map[string]string) Record {
	return Record{
		Title:     title,
		Type:      meta[MetaType],
		BibTeXKey: meta[MetaBibTeXKey],
		Date:      meta[MetaDate],
		Editor:    meta[MetaEditor],
		DOI:       meta[MetaDOI],
		URL:       meta[MetaURL],
		Journal:   meta[MetaJournal],
		Booktitle: meta[MetaBooktitle],
		Volume:    meta[MetaVolume],
		Number:    meta[MetaNumber],
		Issue:     meta[MetaIssue],
		Pages:     meta[MetaPages],
		Publisher: meta[MetaPublisher],
		ISBN:      meta[MetaISBN],
		Abstract:  meta[MetaAbstract],
		Edition:   meta[MetaEdition],
	}
}

// YearFromDate returns the first four characters of an ISO date when they
// form a number, otherwise "".
func YearFromDate(date string) string {
	if len(date) < 4 {
		return ""
	}
	y := date[:4]
	if _, err := strconv.Atoi(y); err != nil {
		return ""
	}
	return y
}
