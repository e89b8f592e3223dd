// Package importer runs the Crossref import pipeline: fetch each DOI, map
// the work, create or update the matching publication, and resolve its
// authors.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/matsen/pubmanager/internal/crossref"
	"github.com/matsen/pubmanager/internal/identity"
	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/storage"
)

// ErrNoDOIs is returned when the input holds no DOI.
var ErrNoDOIs = errors.New("please enter at least one DOI")

// Actions reported for imported DOIs.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// Stage is a point in the per-DOI state machine.
type Stage string

const (
	StagePending     Stage = "pending"
	StageFetching    Stage = "fetching"
	StageHTTPFail    Stage = "http_fail"
	StageParseFail   Stage = "parse_fail"
	StageParseOK     Stage = "parse_ok"
	StageDedupCreate Stage = "dedup_create"
	StageDedupUpdate Stage = "dedup_update"
	StageStoreFail   Stage = "store_fail"
	StageDone        Stage = "done"
)

// Imported is one successfully imported DOI.
type Imported struct {
	DOI    string `json:"doi"`
	PostID int64  `json:"post_id"`
	Title  string `json:"title"`
	Action string `json:"action"`
}

// Failed is one DOI that could not be imported.
type Failed struct {
	DOI   string `json:"doi"`
	Error string `json:"error"`
}

// BatchResult is the outcome of importing a batch of DOIs.
type BatchResult struct {
	Success  bool       `json:"success"`
	Imported []Imported `json:"imported"`
	Failed   []Failed   `json:"failed"`
	Total    int        `json:"total"`
}

// Outcome is the result of one DOI with the stage it ended in.
type Outcome struct {
	DOI    string
	Stage  Stage
	Action string
	PostID int64
	Title  string
	Err    error
}

// Fetcher retrieves Crossref work records.
type Fetcher interface {
	GetWork(ctx context.Context, doi string) (*crossref.Work, error)
}

// Store is the publication persistence the pipeline needs.
type Store interface {
	CreatePost(p storage.Post) (int64, error)
	GetPost(id int64) (*storage.Post, error)
	UpdatePost(p storage.Post) error
	DeletePost(id int64) error
	GetMeta(postID int64, key string) (string, error)
	UpdateMeta(postID int64, key, value string) error
	MetaByKey(kind, key string, statuses ...string) ([]storage.MetaEntry, error)
}

// Authors replaces a publication's author association.
type Authors interface {
	SetPublicationAuthors(pubID int64, names []string) ([]int64, []string, error)
}

// Linker refreshes the derived publication links.
type Linker interface {
	Sync(pubID int64) ([]relation.Link, error)
}

// Pipeline imports DOIs one at a time.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	authors Authors
	links   Linker
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline. links may be nil when no derived view is kept.
func New(fetcher Fetcher, store Store, authors Authors, links Linker, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		store:   store,
		authors: authors,
		links:   links,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ImportDOIs imports every whitespace-separated DOI in input, in order.
// Individual failures are collected in the result; the only error returned
// is ErrNoDOIs. Success is true when at least one DOI was imported.
func (p *Pipeline) ImportDOIs(ctx context.Context, input string) (*BatchResult, error) {
	dois := identity.SplitDOIs(input)
	if len(dois) == 0 {
		return nil, ErrNoDOIs
	}

	result := &BatchResult{
		Imported: []Imported{},
		Failed:   []Failed{},
		Total:    len(dois),
	}
	for _, doi := range dois {
		out := p.ImportDOI(ctx, doi)
		if out.Err != nil {
			result.Failed = append(result.Failed, Failed{DOI: doi, Error: out.Err.Error()})
			continue
		}
		result.Imported = append(result.Imported, Imported{
			DOI:    doi,
			PostID: out.PostID,
			Title:  out.Title,
			Action: out.Action,
		})
	}
	result.Success = len(result.Imported) > 0

	p.logger.Info("import finished",
		"total", result.Total, "imported", len(result.Imported), "failed", len(result.Failed))
	return result, nil
}

// ImportDOI runs one DOI through fetch, map, dedup and write.
func (p *Pipeline) ImportDOI(ctx context.Context, doi string) Outcome {
	out := Outcome{DOI: doi, Stage: StagePending}
	log := p.logger.With("doi", doi)

	out.Stage = StageFetching
	bare := identity.BareDOI(doi)
	log.Info("fetching from Crossref")
	work, err := p.fetcher.GetWork(ctx, bare)
	if err != nil {
		out.Err = err
		out.Stage = StageHTTPFail
		if errors.Is(err, crossref.ErrInvalidResponse) {
			out.Stage = StageParseFail
		}
		log.Warn("fetch failed", "stage", out.Stage, "error", err)
		return out
	}

	now := p.now()
	rec, err := crossref.MapWork(*work, now)
	if err != nil {
		out.Err = err
		out.Stage = StageParseFail
		log.Warn("mapping failed", "error", err)
		return out
	}
	if rec.DOI == "" {
		rec.DOI = bare
	}
	out.Stage = StageParseOK
	log.Debug("mapped work", "title", rec.Title, "type", rec.Type, "authors", len(rec.Authors))

	existing, err := p.findByDOI(rec.DOI)
	if err != nil {
		return p.storeFailure(out, log, fmt.Errorf("searching for existing publication: %w", err))
	}

	var postID int64
	if existing != 0 {
		out.Stage = StageDedupUpdate
		out.Action = ActionUpdated
		postID = existing
		if err := p.update(postID, rec, now); err != nil {
			return p.storeFailure(out, log, fmt.Errorf("failed to update publication: %w", err))
		}
	} else {
		out.Stage = StageDedupCreate
		out.Action = ActionCreated
		postID, err = p.create(rec, now)
		if err != nil {
			return p.storeFailure(out, log, fmt.Errorf("failed to create publication: %w", err))
		}
	}

	_, skipped, err := p.authors.SetPublicationAuthors(postID, rec.Authors)
	if err != nil {
		return p.storeFailure(out, log, fmt.Errorf("failed to set authors: %w", err))
	}
	for _, name := range skipped {
		log.Warn("skipped unresolvable author", "name", name)
	}
	if p.links != nil {
		if _, err := p.links.Sync(postID); err != nil {
			return p.storeFailure(out, log, fmt.Errorf("failed to sync team links: %w", err))
		}
	}

	out.Stage = StageDone
	out.PostID = postID
	out.Title = rec.Title
	log.Info("imported", "action", out.Action, "post_id", postID, "title", rec.Title)
	return out
}

func (p *Pipeline) storeFailure(out Outcome, log *slog.Logger, err error) Outcome {
	out.Err = err
	out.Stage = StageStoreFail
	log.Error("persistence failed", "error", err)
	return out
}

// findByDOI returns the ID of the non-trashed publication whose normalized
// DOI equals doi's, or 0.
func (p *Pipeline) findByDOI(doi string) (int64, error) {
	if identity.NormalizeDOI(doi) == "" {
		return 0, nil
	}
	entries, err := p.store.MetaByKey(publication.Kind, publication.MetaDOI, publication.LiveStatuses...)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if identity.SameDOI(e.Value, doi) {
			return e.PostID, nil
		}
	}
	return 0, nil
}

func (p *Pipeline) citeKeyExists() (func(string) bool, error) {
	entries, err := p.store.MetaByKey(publication.Kind, publication.MetaBibTeXKey)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.Value] = true
	}
	return func(k string) bool { return taken[k] }, nil
}

func (p *Pipeline) create(rec publication.Record, now time.Time) (int64, error) {
	exists, err := p.citeKeyExists()
	if err != nil {
		return 0, err
	}
	rec.BibTeXKey = UniqueCiteKey(rec.BibTeXKey, exists)

	id, err := p.store.CreatePost(storage.Post{
		Kind:   publication.Kind,
		Title:  rec.Title,
		Status: publication.PostPublish,
	})
	if err != nil {
		return 0, err
	}
	if err := p.writeCreatedMeta(id, rec, now); err != nil {
		// Without pm_doi the post would escape dedup on the next import.
		if derr := p.store.DeletePost(id); derr != nil {
			p.logger.Error("removing partially created publication", "post_id", id, "error", derr)
		}
		return 0, err
	}
	return id, nil
}

func (p *Pipeline) writeCreatedMeta(id int64, rec publication.Record, now time.Time) error {
	if err := p.writeMeta(id, rec); err != nil {
		return err
	}
	if err := p.store.UpdateMeta(id, publication.MetaStatus, string(publication.StatusPublished)); err != nil {
		return err
	}
	return p.store.UpdateMeta(id, publication.MetaImportID, strconv.FormatInt(now.Unix(), 10))
}

// update rewrites mapped fields of an existing publication. The stored
// BibTeX key is kept; a re-import never renames it.
func (p *Pipeline) update(id int64, rec publication.Record, now time.Time) error {
	post, err := p.store.GetPost(id)
	if err != nil {
		return err
	}
	if post == nil {
		return storage.ErrNotFound
	}
	if post.Title != rec.Title {
		post.Title = rec.Title
		if err := p.store.UpdatePost(*post); err != nil {
			return err
		}
	}

	stored, err := p.store.GetMeta(id, publication.MetaBibTeXKey)
	if err != nil {
		return err
	}
	if stored != "" {
		rec.BibTeXKey = stored
	} else {
		exists, err := p.citeKeyExists()
		if err != nil {
			return err
		}
		rec.BibTeXKey = UniqueCiteKey(rec.BibTeXKey, exists)
	}

	if err := p.writeMeta(id, rec); err != nil {
		return err
	}
	if err := p.store.UpdateMeta(id, publication.MetaImportID, strconv.FormatInt(now.Unix(), 10)); err != nil {
		return err
	}
	return p.store.UpdateMeta(id, publication.MetaLastUpdated, now.UTC().Format("2006-01-02 15:04:05"))
}

// writeMeta stores the record's non-empty fields, including the year.
func (p *Pipeline) writeMeta(id int64, rec publication.Record) error {
	for key, value := range rec.Meta() {
		if err := p.store.UpdateMeta(id, key, value); err != nil {
			return err
		}
	}
	return nil
}
