package repair

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/registry"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/storage"
)

const teamKind = "team_member"

type fixture struct {
	db    *storage.DB
	reg   *registry.Registry
	rel   *relation.Relations
	tools *Tools
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	reg := registry.New(db, teamKind, registry.WithPermalink(registry.Permalinker("https://example.org")))
	rel := relation.New(db, reg, teamKind, nil)
	return &fixture{db: db, reg: reg, rel: rel, tools: New(db, reg, rel, teamKind, nil)}
}

func (f *fixture) post(t *testing.T, kind, title, status string) int64 {
	t.Helper()
	id, err := f.db.CreatePost(storage.Post{Kind: kind, Title: title, Status: status})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	return id
}

func (f *fixture) authors(t *testing.T, pubID int64, names ...string) []int64 {
	t.Helper()
	ids, _, err := f.reg.SetPublicationAuthors(pubID, names)
	if err != nil {
		t.Fatalf("SetPublicationAuthors() error = %v", err)
	}
	return ids
}

func TestMigrateLegacyAuthors(t *testing.T) {
	f := setup(t)
	pub := f.post(t, publication.Kind, "Legacy", publication.PostPublish)
	f.db.UpdateMeta(pub, publication.MetaLegacyAuthors, "A, B ,C, ")

	migrated, err := f.tools.MigrateLegacyAuthors(pub)
	if err != nil {
		t.Fatalf("MigrateLegacyAuthors() error = %v", err)
	}
	if !migrated {
		t.Fatal("MigrateLegacyAuthors() = false, want true")
	}

	names, _ := f.reg.AuthorNames(pub)
	want := []string{"A", "B", "C"}
	if len(names) != len(want) {
		t.Fatalf("AuthorNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("AuthorNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	legacy, _ := f.db.GetMeta(pub, publication.MetaLegacyAuthors)
	if legacy == "" {
		t.Error("legacy field was removed")
	}

	migrated, err = f.tools.MigrateLegacyAuthors(pub)
	if err != nil || migrated {
		t.Errorf("second MigrateLegacyAuthors() = %v, %v; want false, nil", migrated, err)
	}
}

func TestMigrateLegacyAuthors_SkipsWhenAuthorsExist(t *testing.T) {
	f := setup(t)
	pub := f.post(t, publication.Kind, "Current", publication.PostPublish)
	f.authors(t, pub, "Existing")
	f.db.UpdateMeta(pub, publication.MetaLegacyAuthors, "Other")

	migrated, err := f.tools.MigrateLegacyAuthors(pub)
	if err != nil || migrated {
		t.Fatalf("MigrateLegacyAuthors() = %v, %v; want false, nil", migrated, err)
	}
	names, _ := f.reg.AuthorNames(pub)
	if len(names) != 1 || names[0] != "Existing" {
		t.Errorf("AuthorNames() = %v, want [Existing]", names)
	}
}

func TestAutoLink_Idempotent(t *testing.T) {
	f := setup(t)
	pub := f.post(t, publication.Kind, "Paper", publication.PostPublish)
	member := f.post(t, teamKind, " Jane Doe ", publication.PostPublish)
	f.post(t, teamKind, "John Roe", publication.PostDraft)
	ids := f.authors(t, pub, "Jane Doe", "John Roe")

	for i := 0; i < 2; i++ {
		if _, err := f.tools.AutoLink(pub); err != nil {
			t.Fatalf("AutoLink() run %d error = %v", i+1, err)
		}
	}

	got, ok, _ := f.reg.TeamMemberLink(ids[0])
	if !ok || got != member {
		t.Errorf("Jane Doe linked to %d (%v), want %d", got, ok, member)
	}
	if _, ok, _ := f.reg.TeamMemberLink(ids[1]); ok {
		t.Error("John Roe linked to an unpublished member")
	}

	reverse, _ := f.db.GetMetaValues(member, registry.MetaAuthorTermID)
	if len(reverse) != 1 {
		t.Errorf("reverse entries = %v, want exactly one", reverse)
	}
}

func TestBulkProcess_Counts(t *testing.T) {
	f := setup(t)
	f.post(t, teamKind, "Jane Doe", publication.PostPublish)

	linked := f.post(t, publication.Kind, "Linked", publication.PostPublish)
	f.authors(t, linked, "Jane Doe", "Someone Else")
	legacy := f.post(t, publication.Kind, "Legacy", publication.PostPublish)
	f.db.UpdateMeta(legacy, publication.MetaLegacyAuthors, "Nobody")
	draft := f.post(t, publication.Kind, "Draft", publication.PostDraft)
	f.authors(t, draft, "Jane Doe")

	result, err := f.tools.BulkProcess(context.Background())
	if err != nil {
		t.Fatalf("BulkProcess() error = %v", err)
	}
	if result.Total != 2 || result.Processed != 2 || result.Linked != 1 {
		t.Errorf("BulkProcess() = total %d processed %d linked %d, want 2 2 1",
			result.Total, result.Processed, result.Linked)
	}
	if len(result.Errors) != 0 {
		t.Errorf("BulkProcess() errors = %v", result.Errors)
	}

	byID := make(map[int64]PublicationResult)
	for _, r := range result.Results {
		byID[r.ID] = r
	}
	r := byID[linked]
	if r.LinksBefore != 0 || r.LinksAfter != 1 || r.NewLinks != 1 || r.TermCount != 2 {
		t.Errorf("linked result = %+v", r)
	}
	if r.Authors != "Jane Doe, Someone Else" {
		t.Errorf("Authors = %q", r.Authors)
	}
	if l := byID[legacy]; !l.Migrated || l.TermCount != 1 {
		t.Errorf("legacy result = %+v", l)
	}

	again, err := f.tools.BulkProcess(context.Background())
	if err != nil {
		t.Fatalf("second BulkProcess() error = %v", err)
	}
	for _, r := range again.Results {
		if r.NewLinks != 0 {
			t.Errorf("second pass made new links for %d: %+v", r.ID, r)
		}
	}
}

func TestBulkProcess_Canceled(t *testing.T) {
	f := setup(t)
	f.post(t, publication.Kind, "Paper", publication.PostPublish)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := f.tools.BulkProcess(ctx)
	if err == nil {
		t.Fatal("BulkProcess() expected error for canceled context")
	}
	if result.Processed != 0 {
		t.Errorf("Processed = %d, want 0", result.Processed)
	}
}

func TestBulkProcess_CollapsesDuplicates(t *testing.T) {
	f := setup(t)
	member := f.post(t, teamKind, "Jane Doe", publication.PostPublish)
	pub := f.post(t, publication.Kind, "Paper", publication.PostPublish)
	f.authors(t, pub, "Jane Doe")
	if _, err := f.tools.BulkProcess(context.Background()); err != nil {
		t.Fatalf("BulkProcess() error = %v", err)
	}
	id := strconv.FormatInt(pub, 10)
	f.db.AddMeta(member, relation.MetaPublicationID, id)
	f.db.AddMeta(member, relation.MetaPublicationID, id)

	stats, _ := f.tools.Stats()
	if stats.Duplicates != 2 {
		t.Fatalf("Duplicates before rebuild = %d, want 2", stats.Duplicates)
	}
	if _, err := f.tools.BulkProcess(context.Background()); err != nil {
		t.Fatalf("BulkProcess() error = %v", err)
	}
	stats, _ = f.tools.Stats()
	if stats.Duplicates != 0 {
		t.Errorf("Duplicates after rebuild = %d, want 0", stats.Duplicates)
	}
}
