// Package repair reconciles the author registry with the derived
// publication links: legacy author migration, exact-name auto-linking,
// orphan cleanup and statistics. Every operation is idempotent.
package repair

import (
	"context"
	"log/slog"
	"strings"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/registry"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/storage"
)

// Store is the persistence the repair tools read directly.
type Store interface {
	GetPost(id int64) (*storage.Post, error)
	ListPosts(kind string, statuses ...string) ([]storage.Post, error)
	FindPostsByTitle(kind, title string, statuses ...string) ([]storage.Post, error)
	GetMeta(postID int64, key string) (string, error)
	GetMetaValues(postID int64, key string) ([]string, error)
}

// Registry is the author registry surface used here.
type Registry interface {
	PublicationAuthors(pubID int64) ([]registry.Author, error)
	SetPublicationAuthors(pubID int64, names []string) ([]int64, []string, error)
	SetTeamMemberLink(termID, memberID int64) error
	RefreshTeamURL(termID int64) (bool, error)
	ListAuthors() ([]registry.Summary, error)
}

// Relations is the derived-link surface used here.
type Relations interface {
	Sync(pubID int64) ([]relation.Link, error)
	LinkedMembers(pubID int64) ([]int64, error)
	ReverseEntries(memberID int64) ([]relation.ReverseEntry, error)
	Validate(e relation.ReverseEntry) (string, error)
	RemoveEntry(e relation.ReverseEntry) (int64, error)
}

// Tools runs reconciliation passes.
type Tools struct {
	store    Store
	registry Registry
	rel      Relations
	teamKind string
	logger   *slog.Logger
}

// New creates repair tools. A nil logger uses slog.Default().
func New(store Store, reg Registry, rel Relations, teamKind string, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{store: store, registry: reg, rel: rel, teamKind: teamKind, logger: logger}
}

// PublicationResult reports the effect of processing one publication.
type PublicationResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	TermCount   int    `json:"term_count"`
	Migrated    bool   `json:"migrated"`
	LinksBefore int    `json:"links_before"`
	LinksAfter  int    `json:"links_after"`
	NewLinks    int    `json:"new_links"`
}

// BulkResult summarizes a bulk pass.
type BulkResult struct {
	Total     int                 `json:"total"`
	Processed int                 `json:"processed"`
	Linked    int                 `json:"linked"`
	Errors    []string            `json:"errors"`
	Results   []PublicationResult `json:"results"`
}

// MigrateLegacyAuthors attaches authors from the comma-separated legacy
// field when the publication has no registry authors yet. The legacy value
// is left in place. Reports whether a migration happened.
func (t *Tools) MigrateLegacyAuthors(pubID int64) (bool, error) {
	authors, err := t.registry.PublicationAuthors(pubID)
	if err != nil {
		return false, err
	}
	if len(authors) > 0 {
		return false, nil
	}
	legacy, err := t.store.GetMeta(pubID, publication.MetaLegacyAuthors)
	if err != nil || strings.TrimSpace(legacy) == "" {
		return false, err
	}

	var names []string
	for _, n := range strings.Split(legacy, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return false, nil
	}
	if _, _, err := t.registry.SetPublicationAuthors(pubID, names); err != nil {
		return false, err
	}
	t.logger.Info("migrated legacy authors", "publication", pubID, "authors", len(names))
	return true, nil
}

// AutoLink links each unlinked author of a publication to the first
// published team member whose trimmed title equals the author name.
// Returns the number of links made.
func (t *Tools) AutoLink(pubID int64) (int, error) {
	authors, err := t.registry.PublicationAuthors(pubID)
	if err != nil {
		return 0, err
	}
	linked := 0
	for _, a := range authors {
		if a.TeamMemberID != 0 {
			continue
		}
		matches, err := t.store.FindPostsByTitle(t.teamKind, a.Name, publication.PostPublish)
		if err != nil {
			return linked, err
		}
		if len(matches) == 0 {
			continue
		}
		if err := t.registry.SetTeamMemberLink(a.ID, matches[0].ID); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// countPublishedLinks counts authors linked to a published team member.
func (t *Tools) countPublishedLinks(authors []registry.Author) (int, error) {
	n := 0
	for _, a := range authors {
		if a.TeamMemberID == 0 {
			continue
		}
		p, err := t.store.GetPost(a.TeamMemberID)
		if err != nil {
			return 0, err
		}
		if p != nil && p.Status == publication.PostPublish {
			n++
		}
	}
	return n, nil
}

// ProcessPublication migrates, auto-links, fills missing cached team URLs
// and resyncs the derived links of one publication.
func (t *Tools) ProcessPublication(pub storage.Post) (PublicationResult, error) {
	res := PublicationResult{ID: pub.ID, Title: pub.Title}

	migrated, err := t.MigrateLegacyAuthors(pub.ID)
	if err != nil {
		return res, err
	}
	res.Migrated = migrated

	authors, err := t.registry.PublicationAuthors(pub.ID)
	if err != nil {
		return res, err
	}
	res.TermCount = len(authors)
	if res.LinksBefore, err = t.countPublishedLinks(authors); err != nil {
		return res, err
	}

	if _, err := t.AutoLink(pub.ID); err != nil {
		return res, err
	}

	authors, err = t.registry.PublicationAuthors(pub.ID)
	if err != nil {
		return res, err
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
		if a.TeamMemberID != 0 {
			if _, err := t.registry.RefreshTeamURL(a.ID); err != nil {
				return res, err
			}
		}
	}
	res.Authors = strings.Join(names, ", ")
	if res.LinksAfter, err = t.countPublishedLinks(authors); err != nil {
		return res, err
	}
	res.NewLinks = res.LinksAfter - res.LinksBefore

	if _, err := t.rel.Sync(pub.ID); err != nil {
		return res, err
	}
	return res, nil
}

// BulkProcess runs ProcessPublication over every published publication.
// A failing publication is recorded and the pass continues. The pass stops
// early only if ctx is done.
func (t *Tools) BulkProcess(ctx context.Context) (*BulkResult, error) {
	pubs, err := t.store.ListPosts(publication.Kind, publication.PostPublish)
	if err != nil {
		return nil, err
	}
	result := &BulkResult{
		Total:   len(pubs),
		Errors:  []string{},
		Results: []PublicationResult{},
	}
	for _, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := t.ProcessPublication(pub)
		if err != nil {
			t.logger.Error("bulk processing failed", "publication", pub.ID, "error", err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Results = append(result.Results, res)
		result.Processed++
		if res.LinksAfter > 0 {
			result.Linked++
		}
	}
	t.logger.Info("bulk process finished",
		"total", result.Total, "processed", result.Processed, "linked", result.Linked)
	return result, nil
}
