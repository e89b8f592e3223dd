package publication

import "sort"

// Type describes one bibliographic kind of publication.
type Type struct {
	Slug          string   // internal type identifier, e.g. "article"
	BibTeXType    string   // entry type used in BibTeX export
	Label         string   // singular display label
	DefaultFields []string // fields shown by default for this type
}

// DefaultType is used when a type is unknown.
const DefaultType = "misc"

var types = map[string]Type{}

func register(t Type) {
	types[t.Slug] = t
}

func init() {
	register(Type{"article", "article", "Journal Article", []string{"journal", "volume", "number", "issue", "pages"}})
	register(Type{"book", "book", "Book", []string{"volume", "number", "publisher", "address", "edition", "series"}})
	register(Type{"booklet", "booklet", "Booklet", []string{"volume", "address", "howpublished"}})
	register(Type{"collection", "collection", "Collection", []string{"booktitle", "volume", "number", "pages", "publisher", "address", "edition", "chapter", "series"}})
	register(Type{"conference", "conference", "Conference", []string{"booktitle", "volume", "number", "pages", "publisher", "address", "organization", "series"}})
	register(Type{"bachelorthesis", "mastersthesis", "Bachelor Thesis", []string{"address", "school", "techtype"}})
	register(Type{"diplomathesis", "mastersthesis", "Diploma Thesis", []string{"address", "school", "techtype"}})
	register(Type{"inbook", "inbook", "Book Chapter", []string{"volume", "number", "pages", "publisher", "address", "edition", "chapter", "series"}})
	register(Type{"incollection", "incollection", "Book Section", []string{"volume", "number", "pages", "publisher", "address", "edition", "chapter", "series", "techtype"}})
	register(Type{"inproceedings", "inproceedings", "Proceedings Article", []string{"booktitle", "volume", "number", "pages", "publisher", "address", "organization", "series"}})
	register(Type{"manual", "manual", "Technical Manual", []string{"address", "edition", "organization", "series"}})
	register(Type{"mastersthesis", "mastersthesis", "Masters Thesis", []string{"address", "school", "techtype"}})
	register(Type{"media", "misc", "Medium", []string{"publisher", "address", "howpublished"}})
	register(Type{"misc", "misc", "Miscellaneous", []string{"howpublished"}})
	register(Type{"online", "online", "Online", []string{"howpublished"}})
	register(Type{"patent", "patent", "Patent", []string{"howpublished"}})
	register(Type{"periodical", "periodical", "Periodical", []string{"howpublished"}})
	register(Type{"phdthesis", "phdthesis", "PhD Thesis", []string{"school", "address"}})
	register(Type{"presentation", "presentation", "Presentation", []string{"howpublished", "address"}})
	register(Type{"proceedings", "proceedings", "Proceedings", []string{"organization", "publisher", "address"}})
	register(Type{"techreport", "techreport", "Technical Report", []string{"institution", "address", "techtype", "number"}})
	register(Type{"unpublished", "unpublished", "Unpublished", []string{"howpublished"}})
	register(Type{"workingpaper", "misc", "Working Paper", []string{"howpublished"}})
	register(Type{"workshop", "workshop", "Workshop", []string{"booktitle", "organization", "address"}})
}

// LookupType returns the registered type for slug.
func LookupType(slug string) (Type, bool) {
	t, ok := types[slug]
	return t, ok
}

// TypeOrDefault returns the registered type for slug, or misc.
func TypeOrDefault(slug string) Type {
	if t, ok := types[slug]; ok {
		return t
	}
	return types[DefaultType]
}

// Types returns all registered types sorted by slug.
func Types() []Type {
	all := make([]Type, 0, len(types))
	for _, t := range types {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all
}
