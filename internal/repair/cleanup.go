package repair

import (
	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/relation"
)

// CleanupResult reports an orphan cleanup pass.
type CleanupResult struct {
	Removed int64                 `json:"removed"`
	Orphans []relation.OrphanInfo `json:"orphans"`
}

// CleanupOrphans removes every reverse entry on team members whose target
// publication or author is missing or no longer valid. Valid entries are
// untouched, so a second run removes nothing.
func (t *Tools) CleanupOrphans() (*CleanupResult, error) {
	members, err := t.store.ListPosts(t.teamKind)
	if err != nil {
		return nil, err
	}
	result := &CleanupResult{Orphans: []relation.OrphanInfo{}}
	for _, m := range members {
		entries, err := t.rel.ReverseEntries(m.ID)
		if err != nil {
			return nil, err
		}
		orphaned, _, err := relation.DetectOrphans(entries, t.rel.Validate)
		if err != nil {
			return nil, err
		}
		for _, o := range orphaned {
			n, err := t.rel.RemoveEntry(o.ReverseEntry)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				result.Removed += n
				result.Orphans = append(result.Orphans, o)
			}
		}
	}
	if result.Removed > 0 {
		t.logger.Info("removed orphaned entries", "count", result.Removed)
	}
	return result, nil
}

// MemberStats describes the reverse entries on one team member.
type MemberStats struct {
	ID                 int64  `json:"member_id"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	PublicationEntries int    `json:"total_entries"`
	Publications       int    `json:"count"`
	Duplicates         int    `json:"duplicates"`
	Orphaned           int    `json:"orphaned"`
	AuthorEntries      int    `json:"author_entries"`
	AuthorOrphaned     int    `json:"author_orphaned"`
}

// Stats is the debug view over publications, authors and reverse entries.
type Stats struct {
	Publications     int           `json:"publications"`
	WithLinks        int           `json:"publications_with_links"`
	WithoutLinks     int           `json:"publications_without_links"`
	TotalConnections int           `json:"total_connections"`
	ValidConnections int           `json:"valid_connections"`
	Duplicates       int           `json:"duplicates"`
	Orphaned         int           `json:"orphaned"`
	Authors          int           `json:"authors"`
	LinkedAuthors    int           `json:"linked_authors"`
	LegacyUnmigrated int           `json:"legacy_unmigrated"`
	LegacyAuthorList int           `json:"legacy_author_list_unsupported"`
	Members          []MemberStats `json:"members"`
}

// Stats gathers statistics. Duplicates count extra copies of the same
// reverse entry; orphans count distinct entries with invalid targets.
// Publications still holding the repeatable one-name-per-entry author
// format are counted but never migrated.
func (t *Tools) Stats() (*Stats, error) {
	s := &Stats{Members: []MemberStats{}}

	pubs, err := t.store.ListPosts(publication.Kind, publication.PostPublish)
	if err != nil {
		return nil, err
	}
	s.Publications = len(pubs)
	for _, p := range pubs {
		members, err := t.rel.LinkedMembers(p.ID)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			s.WithLinks++
			s.TotalConnections += len(members)
		} else {
			s.WithoutLinks++
		}

		authors, err := t.registry.PublicationAuthors(p.ID)
		if err != nil {
			return nil, err
		}
		if len(authors) == 0 {
			legacy, err := t.store.GetMeta(p.ID, publication.MetaLegacyAuthors)
			if err != nil {
				return nil, err
			}
			if legacy != "" {
				s.LegacyUnmigrated++
			}
		}
		list, err := t.store.GetMetaValues(p.ID, publication.MetaLegacyAuthorList)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			s.LegacyAuthorList++
		}
	}

	authors, err := t.registry.ListAuthors()
	if err != nil {
		return nil, err
	}
	s.Authors = len(authors)
	for _, a := range authors {
		if a.TeamMemberID != 0 {
			s.LinkedAuthors++
		}
	}

	members, err := t.store.ListPosts(t.teamKind)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		ms, err := t.memberStats(m.ID, m.Title, m.Status)
		if err != nil {
			return nil, err
		}
		s.ValidConnections += ms.Publications
		s.Duplicates += ms.Duplicates
		s.Orphaned += ms.Orphaned + ms.AuthorOrphaned
		if ms.PublicationEntries > 0 || ms.AuthorEntries > 0 {
			s.Members = append(s.Members, ms)
		}
	}
	return s, nil
}

func (t *Tools) memberStats(id int64, name, status string) (MemberStats, error) {
	ms := MemberStats{ID: id, Name: name, Status: status}
	entries, err := t.rel.ReverseEntries(id)
	if err != nil {
		return ms, err
	}

	var ids []relation.ReverseEntry
	seen := make(map[relation.EntryKey]bool)
	var unique []relation.ReverseEntry
	for _, e := range entries {
		switch e.Kind {
		case relation.EntryPublication:
			ms.PublicationEntries++
		case relation.EntryAuthor:
			ms.AuthorEntries++
		default:
			continue
		}
		ids = append(ids, e)
		if !seen[e.Identity()] {
			seen[e.Identity()] = true
			unique = append(unique, e)
		}
	}

	for _, count := range relation.FindDuplicates(ids) {
		ms.Duplicates += count - 1
	}

	orphaned, valid, err := relation.DetectOrphans(unique, t.rel.Validate)
	if err != nil {
		return ms, err
	}
	for _, o := range orphaned {
		if o.Kind == relation.EntryPublication {
			ms.Orphaned++
		} else {
			ms.AuthorOrphaned++
		}
	}
	for _, v := range valid {
		if v.Kind == relation.EntryPublication {
			ms.Publications++
		}
	}
	return ms, nil
}
