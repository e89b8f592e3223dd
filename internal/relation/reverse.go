package relation

import (
	"strings"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/registry"
)

// Reverse entry kinds.
const (
	EntryPublication = "publication" // pm_publication_id value
	EntrySummary     = "summary"     // pm_publication_<id> record
	EntryAuthor      = "author"      // pm_author_term_id value
)

// ReverseEntry is one back-reference stored on a team member.
type ReverseEntry struct {
	MemberID int64  `json:"member_id"`
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	TargetID int64  `json:"target_id"` // 0 when the stored value is not an ID
}

// EntryKey is the logical identity of a reverse entry.
type EntryKey struct {
	MemberID int64
	Kind     string
	TargetID int64
}

// Identity returns the logical identity of the entry.
func (e ReverseEntry) Identity() EntryKey {
	return EntryKey{MemberID: e.MemberID, Kind: e.Kind, TargetID: e.TargetID}
}

// OrphanInfo describes a reverse entry whose target is gone or invalid.
type OrphanInfo struct {
	ReverseEntry
	Reason string `json:"reason"` // "missing", "wrong_kind", "unpublished", "unlinked" or "malformed"
}

// ReverseEntries returns every back-reference stored on a team member.
func (r *Relations) ReverseEntries(memberID int64) ([]ReverseEntry, error) {
	var entries []ReverseEntry

	pubIDs, err := r.store.GetMetaValues(memberID, MetaPublicationID)
	if err != nil {
		return nil, err
	}
	for _, v := range pubIDs {
		entries = append(entries, ReverseEntry{
			MemberID: memberID, Kind: EntryPublication,
			Key: MetaPublicationID, Value: v, TargetID: parseID(v),
		})
	}

	summaries, err := r.store.MetaWithPrefix(memberID, MetaPublicationPrefix)
	if err != nil {
		return nil, err
	}
	for _, m := range summaries {
		if m.Key == MetaPublicationID {
			continue
		}
		entries = append(entries, ReverseEntry{
			MemberID: memberID, Kind: EntrySummary,
			Key: m.Key, Value: m.Value,
			TargetID: parseID(strings.TrimPrefix(m.Key, MetaPublicationPrefix)),
		})
	}

	authorIDs, err := r.store.GetMetaValues(memberID, registry.MetaAuthorTermID)
	if err != nil {
		return nil, err
	}
	for _, v := range authorIDs {
		entries = append(entries, ReverseEntry{
			MemberID: memberID, Kind: EntryAuthor,
			Key: registry.MetaAuthorTermID, Value: v, TargetID: parseID(v),
		})
	}
	return entries, nil
}

// Validator reports why an entry is orphaned, or "" when it is valid.
type Validator func(e ReverseEntry) (reason string, err error)

// Validate checks an entry against current state. Publication and summary
// entries need a published publication; author entries need an author whose
// link points back at the member.
func (r *Relations) Validate(e ReverseEntry) (string, error) {
	if e.TargetID == 0 {
		return "malformed", nil
	}
	switch e.Kind {
	case EntryPublication, EntrySummary:
		p, err := r.store.GetPost(e.TargetID)
		if err != nil {
			return "", err
		}
		switch {
		case p == nil:
			return "missing", nil
		case p.Kind != publication.Kind:
			return "wrong_kind", nil
		case p.Status != publication.PostPublish:
			return "unpublished", nil
		}
		return "", nil
	case EntryAuthor:
		author, err := r.authors.Get(e.TargetID)
		if err != nil {
			return "", err
		}
		if author == nil {
			return "missing", nil
		}
		if author.TeamMemberID != e.MemberID {
			return "unlinked", nil
		}
		return "", nil
	}
	return "", nil
}

// DetectOrphans splits entries into orphaned ones with their reasons and
// valid ones.
func DetectOrphans(entries []ReverseEntry, validate Validator) (orphaned []OrphanInfo, valid []ReverseEntry, err error) {
	for _, e := range entries {
		reason, err := validate(e)
		if err != nil {
			return nil, nil, err
		}
		if reason != "" {
			orphaned = append(orphaned, OrphanInfo{ReverseEntry: e, Reason: reason})
		} else {
			valid = append(valid, e)
		}
	}
	return orphaned, valid, nil
}

// FindDuplicates returns the logical entries recorded more than once with
// their counts.
func FindDuplicates(entries []ReverseEntry) map[EntryKey]int {
	counts := make(map[EntryKey]int)
	for _, e := range entries {
		counts[e.Identity()]++
	}

	duplicates := make(map[EntryKey]int)
	for key, count := range counts {
		if count > 1 {
			duplicates[key] = count
		}
	}
	return duplicates
}

// RemoveEntry deletes a reverse entry. Removing a publication ID entry also
// removes its summary. Returns the number of stored values removed.
func (r *Relations) RemoveEntry(e ReverseEntry) (int64, error) {
	switch e.Kind {
	case EntryPublication:
		n, err := r.store.DeleteMeta(e.MemberID, MetaPublicationID, e.Value)
		if err != nil {
			return 0, err
		}
		if e.TargetID == 0 {
			return n, nil
		}
		m, err := r.store.DeleteMetaKey(e.MemberID, summaryKey(e.TargetID))
		return n + m, err
	case EntrySummary:
		return r.store.DeleteMetaKey(e.MemberID, e.Key)
	case EntryAuthor:
		return r.store.DeleteMeta(e.MemberID, registry.MetaAuthorTermID, e.Value)
	}
	return 0, nil
}
