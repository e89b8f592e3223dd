package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreatePost(t *testing.T, db *DB, kind, title, status string) int64 {
	t.Helper()
	id, err := db.CreatePost(Post{Kind: kind, Title: title, Status: status})
	if err != nil {
		t.Fatalf("CreatePost(%q) error = %v", title, err)
	}
	return id
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	id, err := db.CreatePost(Post{Kind: "publication", Title: "Persisted", Status: "publish"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("second OpenDB() error = %v", err)
	}
	defer db.Close()

	p, err := db.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if p == nil || p.Title != "Persisted" {
		t.Errorf("GetPost() after reopen = %+v", p)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "jane-doe"},
		{"  Müller, Hans  ", "müller-hans"},
		{"A -- B", "a-b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPosts_CRUD(t *testing.T) {
	db := openTestDB(t)

	id := mustCreatePost(t, db, "team_member", "Jane Doe", "publish")
	p, err := db.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if p.Slug != "jane-doe" {
		t.Errorf("Slug = %q, want jane-doe", p.Slug)
	}

	p.Status = "draft"
	if err := db.UpdatePost(*p); err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	drafts, err := db.ListPosts("team_member", "draft")
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Errorf("ListPosts(draft) = %d posts, want 1", len(drafts))
	}

	if err := db.AddMeta(id, "k", "v"); err != nil {
		t.Fatalf("AddMeta() error = %v", err)
	}
	if err := db.DeletePost(id); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if p, _ := db.GetPost(id); p != nil {
		t.Error("GetPost() after delete should return nil")
	}
	if v, _ := db.GetMeta(id, "k"); v != "" {
		t.Errorf("meta survived delete: %q", v)
	}
	if err := db.DeletePost(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePost() error = %v, want ErrNotFound", err)
	}
}

func TestGetPost_Missing(t *testing.T) {
	db := openTestDB(t)
	p, err := db.GetPost(42)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if p != nil {
		t.Errorf("GetPost(42) = %+v, want nil", p)
	}
}

func TestFindPostsByTitle_Trimmed(t *testing.T) {
	db := openTestDB(t)
	mustCreatePost(t, db, "team_member", "  Jane Doe ", "publish")
	mustCreatePost(t, db, "team_member", "Jane Doe", "draft")
	mustCreatePost(t, db, "publication", "Jane Doe", "publish")

	got, err := db.FindPostsByTitle("team_member", "Jane Doe", "publish")
	if err != nil {
		t.Fatalf("FindPostsByTitle() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("FindPostsByTitle() = %d posts, want 1", len(got))
	}
}

func TestMeta_RepeatableValues(t *testing.T) {
	db := openTestDB(t)
	id := mustCreatePost(t, db, "team_member", "Jane Doe", "publish")

	for _, v := range []string{"5", "5", "7"} {
		if err := db.AddMeta(id, "pm_publication_id", v); err != nil {
			t.Fatalf("AddMeta() error = %v", err)
		}
	}
	values, err := db.GetMetaValues(id, "pm_publication_id")
	if err != nil {
		t.Fatalf("GetMetaValues() error = %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("GetMetaValues() = %v, want 3 values", values)
	}

	n, err := db.DeleteMeta(id, "pm_publication_id", "5")
	if err != nil {
		t.Fatalf("DeleteMeta() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteMeta() removed %d, want 2", n)
	}

	ok, err := db.HasMetaValue(id, "pm_publication_id", "7")
	if err != nil || !ok {
		t.Errorf("HasMetaValue(7) = %v, %v", ok, err)
	}

	ids, err := db.PostIDsWithMetaValue("pm_publication_id", "7")
	if err != nil {
		t.Fatalf("PostIDsWithMetaValue() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("PostIDsWithMetaValue() = %v, want [%d]", ids, id)
	}
}

func TestUpdateMeta_ReplacesAllValues(t *testing.T) {
	db := openTestDB(t)
	id := mustCreatePost(t, db, "publication", "Paper", "publish")

	db.AddMeta(id, "pm_doi", "a")
	db.AddMeta(id, "pm_doi", "b")
	if err := db.UpdateMeta(id, "pm_doi", "c"); err != nil {
		t.Fatalf("UpdateMeta() error = %v", err)
	}
	values, _ := db.GetMetaValues(id, "pm_doi")
	if len(values) != 1 || values[0] != "c" {
		t.Errorf("values after UpdateMeta = %v, want [c]", values)
	}

	meta, err := db.AllMeta(id)
	if err != nil {
		t.Fatalf("AllMeta() error = %v", err)
	}
	if meta["pm_doi"] != "c" {
		t.Errorf("AllMeta()[pm_doi] = %q", meta["pm_doi"])
	}
}

func TestMetaByKey_FiltersKindAndStatus(t *testing.T) {
	db := openTestDB(t)
	live := mustCreatePost(t, db, "publication", "Live", "publish")
	trashed := mustCreatePost(t, db, "publication", "Gone", "trash")
	db.UpdateMeta(live, "pm_doi", "10.1/a")
	db.UpdateMeta(trashed, "pm_doi", "10.1/b")

	entries, err := db.MetaByKey("publication", "pm_doi", "publish", "draft")
	if err != nil {
		t.Fatalf("MetaByKey() error = %v", err)
	}
	if len(entries) != 1 || entries[0].PostID != live {
		t.Errorf("MetaByKey() = %+v, want only post %d", entries, live)
	}
}

func TestEnsureTerm_Idempotent(t *testing.T) {
	db := openTestDB(t)

	first, created, err := db.EnsureTerm("pm_author", "Jane Doe")
	if err != nil {
		t.Fatalf("EnsureTerm() error = %v", err)
	}
	if !created {
		t.Error("first EnsureTerm() should create")
	}

	second, created, err := db.EnsureTerm("pm_author", "Jane Doe")
	if err != nil {
		t.Fatalf("second EnsureTerm() error = %v", err)
	}
	if created {
		t.Error("second EnsureTerm() should not create")
	}
	if first.ID != second.ID {
		t.Errorf("EnsureTerm() IDs differ: %d vs %d", first.ID, second.ID)
	}

	terms, _ := db.ListTerms("pm_author")
	if len(terms) != 1 {
		t.Errorf("ListTerms() = %d, want 1", len(terms))
	}
}

func TestTermMeta(t *testing.T) {
	db := openTestDB(t)
	term, _, _ := db.EnsureTerm("pm_author", "Jane Doe")

	if err := db.SetTermMeta(term.ID, "pm_team_member_id", "3"); err != nil {
		t.Fatalf("SetTermMeta() error = %v", err)
	}
	if err := db.SetTermMeta(term.ID, "pm_team_member_id", "4"); err != nil {
		t.Fatalf("SetTermMeta() overwrite error = %v", err)
	}
	v, _ := db.GetTermMeta(term.ID, "pm_team_member_id")
	if v != "4" {
		t.Errorf("GetTermMeta() = %q, want 4", v)
	}

	ids, _ := db.TermIDsWithMeta("pm_team_member_id", "4")
	if len(ids) != 1 || ids[0] != term.ID {
		t.Errorf("TermIDsWithMeta() = %v", ids)
	}

	if err := db.DeleteTermMeta(term.ID, "pm_team_member_id"); err != nil {
		t.Fatalf("DeleteTermMeta() error = %v", err)
	}
	if v, _ := db.GetTermMeta(term.ID, "pm_team_member_id"); v != "" {
		t.Errorf("GetTermMeta() after delete = %q", v)
	}
}

func TestObjectTerms_OrderPreserved(t *testing.T) {
	db := openTestDB(t)
	pub := mustCreatePost(t, db, "publication", "Paper", "publish")

	var ids []int64
	for _, name := range []string{"Zed", "Alice", "Mid"} {
		term, _, err := db.EnsureTerm("pm_author", name)
		if err != nil {
			t.Fatalf("EnsureTerm() error = %v", err)
		}
		ids = append(ids, term.ID)
	}

	if err := db.SetObjectTerms(pub, "pm_author", ids); err != nil {
		t.Fatalf("SetObjectTerms() error = %v", err)
	}
	terms, err := db.ObjectTerms(pub, "pm_author")
	if err != nil {
		t.Fatalf("ObjectTerms() error = %v", err)
	}
	want := []string{"Zed", "Alice", "Mid"}
	if len(terms) != len(want) {
		t.Fatalf("ObjectTerms() = %d terms, want %d", len(terms), len(want))
	}
	for i, term := range terms {
		if term.Name != want[i] {
			t.Errorf("term[%d] = %q, want %q", i, term.Name, want[i])
		}
	}

	// Replacing drops old assignments.
	if err := db.SetObjectTerms(pub, "pm_author", ids[2:]); err != nil {
		t.Fatalf("SetObjectTerms() replace error = %v", err)
	}
	terms, _ = db.ObjectTerms(pub, "pm_author")
	if len(terms) != 1 || terms[0].Name != "Mid" {
		t.Errorf("ObjectTerms() after replace = %+v", terms)
	}

	posts, _ := db.TermObjects(ids[2])
	if len(posts) != 1 || posts[0] != pub {
		t.Errorf("TermObjects() = %v", posts)
	}
}

func TestMetaWithPrefix(t *testing.T) {
	db := openTestDB(t)
	id := mustCreatePost(t, db, "team_member", "Jane Doe", "publish")
	db.AddMeta(id, "pm_publication_id", "5")
	db.UpdateMeta(id, "pm_publication_5", `{"publication_id":5}`)
	db.UpdateMeta(id, "pm_other", "x")

	entries, err := db.MetaWithPrefix(id, "pm_publication_")
	if err != nil {
		t.Fatalf("MetaWithPrefix() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("MetaWithPrefix() = %+v, want 2 entries", entries)
	}
}

func TestDeleteMetaKey(t *testing.T) {
	db := openTestDB(t)
	id := mustCreatePost(t, db, "team_member", "Jane Doe", "publish")
	db.AddMeta(id, "pm_author_term_id", "1")
	db.AddMeta(id, "pm_author_term_id", "2")

	n, err := db.DeleteMetaKey(id, "pm_author_term_id")
	if err != nil {
		t.Fatalf("DeleteMetaKey() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteMetaKey() removed %d, want 2", n)
	}
}
