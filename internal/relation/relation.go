// Package relation maintains the derived publication to team-member view.
//
// Links are computed from the author registry: a publication is linked to
// every published team member that one of its authors points at. The view
// is persisted in two legacy shapes, an aggregate on the publication and
// per-publication entries on each team member, and Sync rewrites both.
package relation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/registry"
	"github.com/matsen/pubmanager/internal/storage"
)

// Attribute keys of both persisted shapes.
const (
	// On the publication.
	MetaTeamMembers = "pm_team_members" // JSON array of member IDs
	MetaAuthorLinks = "pm_author_links" // JSON object author name -> team URL

	// On the team member.
	MetaPublicationID     = "pm_publication_id" // repeatable publication ID
	MetaPublicationPrefix = "pm_publication_"   // + publication ID, JSON Summary
)

// Link is one canonical publication to team-member association.
type Link struct {
	PublicationID int64  `json:"publication_id"`
	TeamMemberID  int64  `json:"team_member_id"`
	AuthorID      int64  `json:"author_id"`
	AuthorName    string `json:"author_name"`
	TeamURL       string `json:"team_url,omitempty"`
}

// Summary is the per-publication record stored on a team member.
type Summary struct {
	PublicationID int64  `json:"publication_id"`
	Title         string `json:"title"`
	Year          string `json:"year,omitempty"`
	AuthorID      int64  `json:"author_id,omitempty"`
	AuthorName    string `json:"author_name,omitempty"`
}

// Store is the persistence the relation view needs.
type Store interface {
	GetPost(id int64) (*storage.Post, error)
	GetMeta(postID int64, key string) (string, error)
	GetMetaValues(postID int64, key string) ([]string, error)
	UpdateMeta(postID int64, key, value string) error
	AddMeta(postID int64, key, value string) error
	DeleteMeta(postID int64, key, value string) (int64, error)
	DeleteMetaKey(postID int64, key string) (int64, error)
	PostIDsWithMetaValue(key, value string) ([]int64, error)
	MetaWithPrefix(postID int64, prefix string) ([]storage.MetaEntry, error)
}

// Authors resolves a publication's authors with their links.
type Authors interface {
	Get(termID int64) (*registry.Author, error)
	PublicationAuthors(pubID int64) ([]registry.Author, error)
	TeamURL(termID int64) (string, error)
}

// Relations derives and persists publication links.
type Relations struct {
	store    Store
	authors  Authors
	teamKind string
	logger   *slog.Logger
}

// New creates a Relations over store. A nil logger uses slog.Default().
func New(store Store, authors Authors, teamKind string, logger *slog.Logger) *Relations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relations{store: store, authors: authors, teamKind: teamKind, logger: logger}
}

// Links returns the canonical links of a publication: one per author whose
// link target exists, is a team member and is published.
func (r *Relations) Links(pubID int64) ([]Link, error) {
	authors, err := r.authors.PublicationAuthors(pubID)
	if err != nil {
		return nil, err
	}
	var links []Link
	for _, a := range authors {
		if a.TeamMemberID == 0 {
			continue
		}
		ok, err := r.isPublishedMember(a.TeamMemberID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		url, err := r.authors.TeamURL(a.ID)
		if err != nil {
			return nil, err
		}
		links = append(links, Link{
			PublicationID: pubID,
			TeamMemberID:  a.TeamMemberID,
			AuthorID:      a.ID,
			AuthorName:    a.Name,
			TeamURL:       url,
		})
	}
	return links, nil
}

// LinkedMembers returns the member IDs recorded in the publication's
// aggregate field.
func (r *Relations) LinkedMembers(pubID int64) ([]int64, error) {
	raw, err := r.store.GetMeta(pubID, MetaTeamMembers)
	if err != nil {
		return nil, err
	}
	return decodeIDs(raw), nil
}

// Sync rewrites both persisted shapes of a publication's links from the
// registry. Members no longer linked lose their entries and repeated
// entries collapse to one. A publication that is not published keeps its
// aggregate but gets no member entries. Returns the canonical links.
func (r *Relations) Sync(pubID int64) ([]Link, error) {
	pub, err := r.store.GetPost(pubID)
	if err != nil {
		return nil, err
	}
	if pub == nil || pub.Kind != publication.Kind {
		if _, err := r.OnPublicationDeleted(pubID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("publication %d: %w", pubID, storage.ErrNotFound)
	}

	links, err := r.Links(pubID)
	if err != nil {
		return nil, err
	}

	members := uniqueMembers(links)
	authorLinks := make(map[string]string)
	for _, l := range links {
		authorLinks[l.AuthorName] = l.TeamURL
	}

	if err := r.writeJSON(pubID, MetaTeamMembers, members); err != nil {
		return nil, err
	}
	if err := r.writeJSON(pubID, MetaAuthorLinks, authorLinks); err != nil {
		return nil, err
	}

	previous, err := r.store.PostIDsWithMetaValue(MetaPublicationID, formatID(pubID))
	if err != nil {
		return nil, err
	}
	wanted := make(map[int64]Link)
	if pub.Status == publication.PostPublish {
		for _, l := range links {
			if _, seen := wanted[l.TeamMemberID]; !seen {
				wanted[l.TeamMemberID] = l
			}
		}
	}

	for _, m := range previous {
		if _, keep := wanted[m]; !keep {
			if _, err := r.removeEntries(m, pubID); err != nil {
				return nil, err
			}
		}
	}
	year := ""
	if date, err := r.store.GetMeta(pubID, publication.MetaDate); err == nil {
		year = publication.YearFromDate(date)
	}
	for _, m := range members {
		l, ok := wanted[m]
		if !ok {
			continue
		}
		summary := Summary{
			PublicationID: pubID,
			Title:         pub.Title,
			Year:          year,
			AuthorID:      l.AuthorID,
			AuthorName:    l.AuthorName,
		}
		if err := r.writeEntry(m, summary); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("synced publication links", "publication", pubID, "members", len(members))
	return links, nil
}

// OnPublicationDeleted removes every team-member entry that points at the
// publication. It must be called by whatever deletes a publication.
// Returns the number of entries removed.
func (r *Relations) OnPublicationDeleted(pubID int64) (int64, error) {
	members, err := r.store.PostIDsWithMetaValue(MetaPublicationID, formatID(pubID))
	if err != nil {
		return 0, err
	}
	if agg, err := r.LinkedMembers(pubID); err == nil {
		members = appendUnique(members, agg...)
	}

	var removed int64
	for _, m := range members {
		n, err := r.removeEntries(m, pubID)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if removed > 0 {
		r.logger.Info("removed links of deleted publication", "publication", pubID, "entries", removed)
	}
	return removed, nil
}

// PublicationsOf returns summaries of the published publications recorded
// on a team member, once each, in recorded order.
func (r *Relations) PublicationsOf(memberID int64) ([]Summary, error) {
	values, err := r.store.GetMetaValues(memberID, MetaPublicationID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var out []Summary
	for _, v := range values {
		pubID := parseID(v)
		if pubID == 0 || seen[pubID] {
			continue
		}
		seen[pubID] = true

		pub, err := r.store.GetPost(pubID)
		if err != nil {
			return nil, err
		}
		if pub == nil || pub.Kind != publication.Kind || pub.Status != publication.PostPublish {
			continue
		}
		s := Summary{PublicationID: pubID, Title: pub.Title}
		raw, err := r.store.GetMeta(memberID, summaryKey(pubID))
		if err != nil {
			return nil, err
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				r.logger.Warn("unreadable publication summary", "member", memberID, "publication", pubID, "error", err)
			}
			s.PublicationID = pubID
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Relations) isPublishedMember(id int64) (bool, error) {
	p, err := r.store.GetPost(id)
	if err != nil {
		return false, err
	}
	return p != nil && p.Kind == r.teamKind && p.Status == publication.PostPublish, nil
}

// writeEntry leaves exactly one ID entry and one summary for pubID on the
// member.
func (r *Relations) writeEntry(memberID int64, s Summary) error {
	values, err := r.store.GetMetaValues(memberID, MetaPublicationID)
	if err != nil {
		return err
	}
	count := 0
	for _, v := range values {
		if v == formatID(s.PublicationID) {
			count++
		}
	}
	if count != 1 {
		if _, err := r.store.DeleteMeta(memberID, MetaPublicationID, formatID(s.PublicationID)); err != nil {
			return err
		}
		if err := r.store.AddMeta(memberID, MetaPublicationID, formatID(s.PublicationID)); err != nil {
			return err
		}
	}
	return r.writeJSON(memberID, summaryKey(s.PublicationID), s)
}

func (r *Relations) removeEntries(memberID, pubID int64) (int64, error) {
	n, err := r.store.DeleteMeta(memberID, MetaPublicationID, formatID(pubID))
	if err != nil {
		return 0, err
	}
	m, err := r.store.DeleteMetaKey(memberID, summaryKey(pubID))
	if err != nil {
		return n, err
	}
	return n + m, nil
}

func (r *Relations) writeJSON(postID int64, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	current, err := r.store.GetMeta(postID, key)
	if err != nil {
		return err
	}
	if current == string(data) {
		return nil
	}
	return r.store.UpdateMeta(postID, key, string(data))
}

func uniqueMembers(links []Link) []int64 {
	members := []int64{}
	for _, l := range links {
		members = appendUnique(members, l.TeamMemberID)
	}
	return members
}

func appendUnique(ids []int64, more ...int64) []int64 {
	for _, id := range more {
		found := false
		for _, have := range ids {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}
	return ids
}

// decodeIDs reads the aggregate field, tolerating empty or malformed data.
func decodeIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func summaryKey(pubID int64) string {
	return MetaPublicationPrefix + formatID(pubID)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
