package export

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/pubmanager/internal/identity"
	"github.com/matsen/pubmanager/internal/publication"
)

var (
	entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiFieldRegex   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// BibTeXIndex records the keys and DOIs already present in a .bib file so
// an export can append only new entries.
type BibTeXIndex struct {
	Keys map[string]bool
	DOIs map[string]string // normalized DOI -> citation key
}

// NewBibTeXIndex creates an empty index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Has reports whether the record is already indexed. The DOI decides when
// the record has one; otherwise the citation key does.
func (idx *BibTeXIndex) Has(rec publication.Record) bool {
	if doi := identity.NormalizeDOI(rec.DOI); doi != "" {
		_, ok := idx.DOIs[doi]
		return ok
	}
	return idx.Keys[rec.BibTeXKey]
}

// Add indexes a record.
func (idx *BibTeXIndex) Add(rec publication.Record) {
	idx.Keys[rec.BibTeXKey] = true
	if doi := identity.NormalizeDOI(rec.DOI); doi != "" {
		idx.DOIs[doi] = rec.BibTeXKey
	}
}

// ParseBibTeX indexes the entries read from r.
func ParseBibTeX(r io.Reader) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()
	scanner := bufio.NewScanner(r)
	var currentKey string

	for scanner.Scan() {
		line := scanner.Text()
		if m := entryStartRegex.FindStringSubmatch(line); len(m) > 1 {
			currentKey = strings.TrimSpace(m[1])
			idx.Keys[currentKey] = true
		}
		if m := doiFieldRegex.FindStringSubmatch(line); len(m) > 1 && currentKey != "" {
			if doi := identity.NormalizeDOI(m[1]); doi != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}
	return idx, scanner.Err()
}

// ParseBibTeXFile indexes an existing .bib file. A missing file yields an
// empty index.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBibTeXIndex(), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseBibTeX(f)
}

// AppendNew appends the records not yet in the file at path and returns
// how many were written.
func AppendNew(path string, recs []publication.Record) (int, error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return 0, err
	}
	var fresh []publication.Record
	for _, r := range recs {
		if idx.Has(r) {
			continue
		}
		idx.Add(r)
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + ToBibTeXList(fresh)); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
