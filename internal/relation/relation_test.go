package relation

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/registry"
	"github.com/matsen/pubmanager/internal/storage"
)

const teamKind = "team_member"

type fixture struct {
	db  *storage.DB
	reg *registry.Registry
	rel *Relations
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	reg := registry.New(db, teamKind, registry.WithPermalink(registry.Permalinker("https://example.org")))
	return &fixture{db: db, reg: reg, rel: New(db, reg, teamKind, nil)}
}

func (f *fixture) post(t *testing.T, kind, title, status string) int64 {
	t.Helper()
	id, err := f.db.CreatePost(storage.Post{Kind: kind, Title: title, Status: status})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	return id
}

// linkedPublication creates a published publication by "Jane Doe" linked to
// a published team member.
func (f *fixture) linkedPublication(t *testing.T) (pub, member, author int64) {
	t.Helper()
	pub = f.post(t, publication.Kind, "Example Paper", publication.PostPublish)
	member = f.post(t, teamKind, "Jane Doe", publication.PostPublish)
	ids, _, err := f.reg.SetPublicationAuthors(pub, []string{"Jane Doe", "John Roe"})
	if err != nil {
		t.Fatalf("SetPublicationAuthors() error = %v", err)
	}
	if err := f.reg.SetTeamMemberLink(ids[0], member); err != nil {
		t.Fatalf("SetTeamMemberLink() error = %v", err)
	}
	return pub, member, ids[0]
}

func TestSync_WritesBothShapes(t *testing.T) {
	f := setup(t)
	pub, member, author := f.linkedPublication(t)
	f.db.UpdateMeta(pub, publication.MetaDate, "2023-05-01")

	links, err := f.rel.Sync(pub)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(links) != 1 || links[0].TeamMemberID != member || links[0].AuthorID != author {
		t.Fatalf("Sync() links = %+v", links)
	}

	members, _ := f.rel.LinkedMembers(pub)
	if len(members) != 1 || members[0] != member {
		t.Errorf("LinkedMembers() = %v, want [%d]", members, member)
	}

	raw, _ := f.db.GetMeta(pub, MetaAuthorLinks)
	var authorLinks map[string]string
	if err := json.Unmarshal([]byte(raw), &authorLinks); err != nil {
		t.Fatalf("pm_author_links not JSON: %v", err)
	}
	if authorLinks["Jane Doe"] != "https://example.org/team_member/jane-doe/" {
		t.Errorf("pm_author_links = %v", authorLinks)
	}

	summaries, err := f.rel.PublicationsOf(member)
	if err != nil {
		t.Fatalf("PublicationsOf() error = %v", err)
	}
	if len(summaries) != 1 || summaries[0].Title != "Example Paper" || summaries[0].Year != "2023" {
		t.Errorf("PublicationsOf() = %+v", summaries)
	}
}

func TestSync_CollapsesDuplicates(t *testing.T) {
	f := setup(t)
	pub, member, _ := f.linkedPublication(t)
	for i := 0; i < 3; i++ {
		f.db.AddMeta(member, MetaPublicationID, formatID(pub))
	}

	if _, err := f.rel.Sync(pub); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	values, _ := f.db.GetMetaValues(member, MetaPublicationID)
	if len(values) != 1 {
		t.Errorf("pm_publication_id values = %v, want exactly one", values)
	}
}

func TestSync_RemovesStaleMembers(t *testing.T) {
	f := setup(t)
	pub, member, author := f.linkedPublication(t)
	f.rel.Sync(pub)

	if err := f.reg.ClearTeamMemberLink(author); err != nil {
		t.Fatalf("ClearTeamMemberLink() error = %v", err)
	}
	links, err := f.rel.Sync(pub)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("links after unlink = %+v", links)
	}
	if values, _ := f.db.GetMetaValues(member, MetaPublicationID); len(values) != 0 {
		t.Errorf("stale pm_publication_id values = %v", values)
	}
	if s, _ := f.db.GetMeta(member, summaryKey(pub)); s != "" {
		t.Errorf("stale summary = %q", s)
	}
}

func TestLinks_SkipsUnpublishedMember(t *testing.T) {
	f := setup(t)
	pub := f.post(t, publication.Kind, "Paper", publication.PostPublish)
	member := f.post(t, teamKind, "Jane Doe", publication.PostDraft)
	ids, _, _ := f.reg.SetPublicationAuthors(pub, []string{"Jane Doe"})
	f.reg.SetTeamMemberLink(ids[0], member)

	links, err := f.rel.Links(pub)
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("Links() = %+v, want none for draft member", links)
	}
}

func TestOnPublicationDeleted(t *testing.T) {
	f := setup(t)
	pub, member, _ := f.linkedPublication(t)
	f.rel.Sync(pub)

	if err := f.db.DeletePost(pub); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	removed, err := f.rel.OnPublicationDeleted(pub)
	if err != nil {
		t.Fatalf("OnPublicationDeleted() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("OnPublicationDeleted() removed %d, want 2 (id + summary)", removed)
	}
	if values, _ := f.db.GetMetaValues(member, MetaPublicationID); len(values) != 0 {
		t.Errorf("entries survived delete: %v", values)
	}

	removed, _ = f.rel.OnPublicationDeleted(pub)
	if removed != 0 {
		t.Errorf("second OnPublicationDeleted() removed %d, want 0", removed)
	}
}

func TestDetectOrphansAndRemove(t *testing.T) {
	f := setup(t)
	pub, member, _ := f.linkedPublication(t)
	f.rel.Sync(pub)

	// A reference to a publication that no longer exists.
	f.db.AddMeta(member, MetaPublicationID, "9999")
	f.db.UpdateMeta(member, summaryKey(9999), `{"publication_id":9999}`)
	// A reference to an author that never linked here.
	stray, _ := f.reg.FindOrCreate("Somebody Else")
	f.db.AddMeta(member, registry.MetaAuthorTermID, formatID(stray))

	entries, err := f.rel.ReverseEntries(member)
	if err != nil {
		t.Fatalf("ReverseEntries() error = %v", err)
	}
	orphaned, valid, err := DetectOrphans(entries, f.rel.Validate)
	if err != nil {
		t.Fatalf("DetectOrphans() error = %v", err)
	}
	if len(orphaned) != 3 {
		t.Fatalf("orphaned = %+v, want 3", orphaned)
	}
	if len(valid) != 3 {
		t.Errorf("valid = %+v, want 3 (id, summary, author)", valid)
	}

	var removed int64
	for _, o := range orphaned {
		n, err := f.rel.RemoveEntry(o.ReverseEntry)
		if err != nil {
			t.Fatalf("RemoveEntry() error = %v", err)
		}
		removed += n
	}
	if removed != 3 {
		t.Errorf("removed %d values, want 3", removed)
	}

	entries, _ = f.rel.ReverseEntries(member)
	orphaned, _, _ = DetectOrphans(entries, f.rel.Validate)
	if len(orphaned) != 0 {
		t.Errorf("orphans after removal = %+v", orphaned)
	}
}

func TestFindDuplicates(t *testing.T) {
	entries := []ReverseEntry{
		{MemberID: 1, Kind: EntryPublication, TargetID: 5},
		{MemberID: 1, Kind: EntryPublication, TargetID: 5},
		{MemberID: 1, Kind: EntryPublication, TargetID: 6},
		{MemberID: 1, Kind: EntryAuthor, TargetID: 5},
	}
	dups := FindDuplicates(entries)
	if len(dups) != 1 {
		t.Fatalf("FindDuplicates() = %v, want one key", dups)
	}
	if dups[EntryKey{MemberID: 1, Kind: EntryPublication, TargetID: 5}] != 2 {
		t.Errorf("duplicate count = %v", dups)
	}
}

func TestRemoveEntry_SummaryUsesStoredKey(t *testing.T) {
	f := setup(t)
	member := f.post(t, teamKind, "Jane Doe", publication.PostPublish)
	f.db.UpdateMeta(member, MetaPublicationPrefix+"abc", `{"title":"broken"}`)

	entries, err := f.rel.ReverseEntries(member)
	if err != nil {
		t.Fatalf("ReverseEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want 1", entries)
	}
	e := entries[0]
	if e.Key != MetaPublicationPrefix+"abc" {
		t.Errorf("Key = %q", e.Key)
	}
	want := EntryKey{MemberID: member, Kind: EntrySummary, TargetID: 0}
	if e.Identity() != want {
		t.Errorf("Identity() = %+v, want %+v", e.Identity(), want)
	}

	n, err := f.rel.RemoveEntry(e)
	if err != nil {
		t.Fatalf("RemoveEntry() error = %v", err)
	}
	if n != 1 {
		t.Errorf("RemoveEntry() removed %d, want 1", n)
	}
	if v, _ := f.db.GetMeta(member, MetaPublicationPrefix+"abc"); v != "" {
		t.Errorf("summary still stored: %q", v)
	}
}
