package crossref

// Response is the envelope of a Crossref works lookup.
type Response struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type,omitempty"`
	Message     *Work  `json:"message"`
}

// DateParts holds Crossref's nested [[year, month, day]] date encoding.
type DateParts struct {
	DateParts [][]FlexibleInt `json:"date-parts"`
}

// Ints returns the date parts as plain integers.
func (d DateParts) Ints() [][]int {
	out := make([][]int, len(d.DateParts))
	for i, row := range d.DateParts {
		out[i] = make([]int, len(row))
		for j, v := range row {
			out[i][j] = int(v)
		}
	}
	return out
}

// Person is an author or editor of a work.
type Person struct {
	Given    string `json:"given,omitempty"`
	Family   string `json:"family,omitempty"`
	Sequence string `json:"sequence,omitempty"`
	ORCID    string `json:"ORCID,omitempty"`
}

// Work is the subset of a Crossref work record that gets mapped.
type Work struct {
	DOI            string         `json:"DOI"`
	Type           string         `json:"type"`
	Title          []string       `json:"title"`
	Author         []Person       `json:"author,omitempty"`
	Editor         []Person       `json:"editor,omitempty"`
	ContainerTitle []string       `json:"container-title,omitempty"`
	Published      *DateParts     `json:"published,omitempty"`
	Created        *DateParts     `json:"created,omitempty"`
	Volume         FlexibleString `json:"volume,omitempty"`
	Issue          FlexibleString `json:"issue,omitempty"`
	Page           FlexibleString `json:"page,omitempty"`
	Publisher      string         `json:"publisher,omitempty"`
	ISBN           []string       `json:"ISBN,omitempty"`
	ISSN           []string       `json:"ISSN,omitempty"`
	Abstract       string         `json:"abstract,omitempty"`
	URL            string         `json:"URL,omitempty"`
	EditionNumber  FlexibleString `json:"edition-number,omitempty"`
}
