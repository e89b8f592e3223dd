// Package registry maps author names to durable author terms and manages
// the optional link from each term to a team-member profile.
package registry

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/matsen/pubmanager/internal/identity"
	"github.com/matsen/pubmanager/internal/storage"
)

// Taxonomy is the term taxonomy holding author entities.
const Taxonomy = "pm_author"

// Attribute keys. The first two live on the author term, the last on the
// team-member entity.
const (
	MetaTeamMemberID = "pm_team_member_id"
	MetaTeamURL      = "pm_author_team_url"
	MetaAuthorTermID = "pm_author_term_id"
)

// PublishedStatus is the entity state a team member must be in for its
// links to count.
const PublishedStatus = "publish"

var (
	// ErrEmptyName is returned when a name normalizes to the empty string.
	ErrEmptyName = errors.New("empty author name")
	// ErrTermNotFound is returned for an unknown author term ID.
	ErrTermNotFound = errors.New("author not found")
	// ErrNotTeamMember is returned when a link target is not a team member.
	ErrNotTeamMember = errors.New("not a team member")
)

// Store is the persistence the registry needs.
type Store interface {
	GetPost(id int64) (*storage.Post, error)
	AddMeta(postID int64, key, value string) error
	DeleteMeta(postID int64, key, value string) (int64, error)
	HasMetaValue(postID int64, key, value string) (bool, error)

	EnsureTerm(taxonomy, name string) (*storage.Term, bool, error)
	GetTerm(id int64) (*storage.Term, error)
	ListTerms(taxonomy string) ([]storage.Term, error)
	GetTermMeta(termID int64, key string) (string, error)
	SetTermMeta(termID int64, key, value string) error
	DeleteTermMeta(termID int64, key string) error
	TermIDsWithMeta(key, value string) ([]int64, error)
	SetObjectTerms(postID int64, taxonomy string, termIDs []int64) error
	ObjectTerms(postID int64, taxonomy string) ([]storage.Term, error)
	TermObjects(termID int64) ([]int64, error)
}

// PermalinkFunc returns the public URL of a team-member entity.
type PermalinkFunc func(p storage.Post) string

// Permalinker builds "<siteURL>/<kind>/<slug>/" links.
func Permalinker(siteURL string) PermalinkFunc {
	base := strings.TrimSuffix(siteURL, "/")
	return func(p storage.Post) string {
		return fmt.Sprintf("%s/%s/%s/", base, p.Kind, p.Slug)
	}
}

// Author is an author term with its link state.
type Author struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	TeamMemberID int64  `json:"team_member_id,omitempty"`
	TeamURL      string `json:"team_url,omitempty"`
}

// Summary is an author with usage counts for listings.
type Summary struct {
	Author
	PublicationCount int `json:"publication_count"`
}

// Registry resolves author names and maintains team-member links.
type Registry struct {
	store     Store
	teamKind  string
	permalink PermalinkFunc
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithPermalink sets how team-member URLs are built.
func WithPermalink(fn PermalinkFunc) Option {
	return func(r *Registry) {
		r.permalink = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New creates a registry over store. teamKind is the entity kind that author
// terms may be linked to.
func New(store Store, teamKind string, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		teamKind:  teamKind,
		permalink: Permalinker(""),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TeamKind returns the entity kind of team members.
func (r *Registry) TeamKind() string {
	return r.teamKind
}

// FindOrCreate returns the ID of the author term with the normalized name,
// creating it when absent. New terms are never linked. Returns ErrEmptyName
// for names that normalize to "".
func (r *Registry) FindOrCreate(name string) (int64, error) {
	name = identity.NormalizeName(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	term, created, err := r.store.EnsureTerm(Taxonomy, name)
	if err != nil {
		return 0, fmt.Errorf("resolving author %q: %w", name, err)
	}
	if created {
		r.logger.Debug("created author", "name", name, "id", term.ID)
	} else {
		r.logger.Debug("found author", "name", name, "id", term.ID)
	}
	return term.ID, nil
}

// Get returns the author term with its link state. Returns nil, nil if the
// term does not exist.
func (r *Registry) Get(termID int64) (*Author, error) {
	term, err := r.store.GetTerm(termID)
	if err != nil {
		return nil, err
	}
	if term == nil || term.Taxonomy != Taxonomy {
		return nil, nil
	}
	return r.withLink(*term)
}

// TeamMemberLink returns the linked team-member ID, or 0 with ok false.
func (r *Registry) TeamMemberLink(termID int64) (memberID int64, ok bool, err error) {
	raw, err := r.store.GetTermMeta(termID, MetaTeamMemberID)
	if err != nil {
		return 0, false, err
	}
	id := parseID(raw)
	return id, id != 0, nil
}

// SetTeamMemberLink links an author term to a team member, caching the
// member's permalink and recording the term on the member's reverse list
// once. Relinking to a different member removes the old reverse entry.
func (r *Registry) SetTeamMemberLink(termID, memberID int64) error {
	term, err := r.store.GetTerm(termID)
	if err != nil {
		return err
	}
	if term == nil || term.Taxonomy != Taxonomy {
		return fmt.Errorf("author %d: %w", termID, ErrTermNotFound)
	}
	member, err := r.store.GetPost(memberID)
	if err != nil {
		return err
	}
	if member == nil || member.Kind != r.teamKind {
		return fmt.Errorf("post %d: %w", memberID, ErrNotTeamMember)
	}

	old, linked, err := r.TeamMemberLink(termID)
	if err != nil {
		return err
	}
	if linked && old != memberID {
		if _, err := r.store.DeleteMeta(old, MetaAuthorTermID, formatID(termID)); err != nil {
			return fmt.Errorf("removing reverse link from %d: %w", old, err)
		}
	}

	if err := r.store.SetTermMeta(termID, MetaTeamMemberID, formatID(memberID)); err != nil {
		return err
	}
	if err := r.store.SetTermMeta(termID, MetaTeamURL, r.permalink(*member)); err != nil {
		return err
	}

	has, err := r.store.HasMetaValue(memberID, MetaAuthorTermID, formatID(termID))
	if err != nil {
		return err
	}
	if !has {
		if err := r.store.AddMeta(memberID, MetaAuthorTermID, formatID(termID)); err != nil {
			return err
		}
	}
	r.logger.Info("linked author", "author", term.Name, "team_member", memberID)
	return nil
}

// ClearTeamMemberLink removes an author's link, its cached URL and the
// reverse entry on the previously linked member. Clearing an unlinked
// author is a no-op.
func (r *Registry) ClearTeamMemberLink(termID int64) error {
	old, linked, err := r.TeamMemberLink(termID)
	if err != nil {
		return err
	}
	if err := r.store.DeleteTermMeta(termID, MetaTeamMemberID); err != nil {
		return err
	}
	if err := r.store.DeleteTermMeta(termID, MetaTeamURL); err != nil {
		return err
	}
	if linked {
		if _, err := r.store.DeleteMeta(old, MetaAuthorTermID, formatID(termID)); err != nil {
			return fmt.Errorf("removing reverse link from %d: %w", old, err)
		}
		r.logger.Info("unlinked author", "author", termID, "team_member", old)
	}
	return nil
}

// TeamURL returns the cached permalink of the linked team member, or ""
// when unlinked or when the member is missing or not published. A link
// without a cached URL gets the URL computed from the member.
func (r *Registry) TeamURL(termID int64) (string, error) {
	memberID, ok, err := r.TeamMemberLink(termID)
	if err != nil || !ok {
		return "", err
	}
	member, err := r.store.GetPost(memberID)
	if err != nil {
		return "", err
	}
	if member == nil || member.Status != PublishedStatus {
		return "", nil
	}
	url, err := r.store.GetTermMeta(termID, MetaTeamURL)
	if err != nil {
		return "", err
	}
	if url == "" {
		url = r.permalink(*member)
	}
	return url, nil
}

// RefreshTeamURL caches the permalink of a linked author that has none.
// Reports whether a URL was written.
func (r *Registry) RefreshTeamURL(termID int64) (bool, error) {
	memberID, ok, err := r.TeamMemberLink(termID)
	if err != nil || !ok {
		return false, err
	}
	cached, err := r.store.GetTermMeta(termID, MetaTeamURL)
	if err != nil || cached != "" {
		return false, err
	}
	member, err := r.store.GetPost(memberID)
	if err != nil || member == nil {
		return false, err
	}
	if err := r.store.SetTermMeta(termID, MetaTeamURL, r.permalink(*member)); err != nil {
		return false, err
	}
	return true, nil
}

// SetPublicationAuthors replaces the publication's author association with
// the given names, in order. Names that normalize to "" are skipped and
// returned. Repeated names collapse to their first position.
func (r *Registry) SetPublicationAuthors(pubID int64, names []string) (ids []int64, skipped []string, err error) {
	seen := make(map[int64]bool)
	for _, name := range names {
		id, err := r.FindOrCreate(name)
		if errors.Is(err, ErrEmptyName) {
			skipped = append(skipped, name)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := r.store.SetObjectTerms(pubID, Taxonomy, ids); err != nil {
		return nil, nil, fmt.Errorf("setting authors of %d: %w", pubID, err)
	}
	return ids, skipped, nil
}

// PublicationAuthors returns the publication's authors in stored order.
func (r *Registry) PublicationAuthors(pubID int64) ([]Author, error) {
	terms, err := r.store.ObjectTerms(pubID, Taxonomy)
	if err != nil {
		return nil, err
	}
	authors := make([]Author, 0, len(terms))
	for _, t := range terms {
		a, err := r.withLink(t)
		if err != nil {
			return nil, err
		}
		authors = append(authors, *a)
	}
	return authors, nil
}

// AuthorNames returns the publication's author names in stored order.
func (r *Registry) AuthorNames(pubID int64) ([]string, error) {
	terms, err := r.store.ObjectTerms(pubID, Taxonomy)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return names, nil
}

// RenderAuthorsHTML renders the publication's authors joined by ", ",
// linking each name to its team member's page when one is available.
func (r *Registry) RenderAuthorsHTML(pubID int64) (string, error) {
	terms, err := r.store.ObjectTerms(pubID, Taxonomy)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		name := html.EscapeString(t.Name)
		url, err := r.TeamURL(t.ID)
		if err != nil {
			return "", err
		}
		if url != "" {
			name = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), name)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", "), nil
}

// ListAuthors returns every author with link state and publication count.
func (r *Registry) ListAuthors() ([]Summary, error) {
	terms, err := r.store.ListTerms(Taxonomy)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(terms))
	for _, t := range terms {
		a, err := r.withLink(t)
		if err != nil {
			return nil, err
		}
		pubs, err := r.store.TermObjects(t.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{Author: *a, PublicationCount: len(pubs)})
	}
	return summaries, nil
}

// LinkedAuthorsOf returns the authors whose forward link points at the
// team member.
func (r *Registry) LinkedAuthorsOf(memberID int64) ([]Author, error) {
	ids, err := r.store.TermIDsWithMeta(MetaTeamMemberID, formatID(memberID))
	if err != nil {
		return nil, err
	}
	var authors []Author
	for _, id := range ids {
		a, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			authors = append(authors, *a)
		}
	}
	return authors, nil
}

func (r *Registry) withLink(t storage.Term) (*Author, error) {
	a := &Author{ID: t.ID, Name: t.Name}
	memberID, ok, err := r.TeamMemberLink(t.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		a.TeamMemberID = memberID
		a.TeamURL, err = r.store.GetTermMeta(t.ID, MetaTeamURL)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
