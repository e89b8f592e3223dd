package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/repo"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"PubmanagerPath", PubmanagerPath, "/test/repo/.pubmanager"},
		{"ConfigPath", ConfigPath, "/test/repo/.pubmanager/config.json"},
		{"DBPath", DBPath, "/test/repo/.pubmanager/pubmanager.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(root); got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsRepository_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, PubmanagerDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if IsRepository(tmpDir) {
		t.Error("IsRepository() = true when .pubmanager is a file")
	}
}

func TestFindRepository(t *testing.T) {
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, "repo")
	nestedDir := filepath.Join(repoDir, "src", "pkg")
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if _, err := Init(repoDir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := FindRepository(nestedDir)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	if got != repoDir {
		t.Errorf("FindRepository() = %q, want %q", got, repoDir)
	}

	if _, err := FindRepository(tmpDir); err == nil {
		t.Error("FindRepository() expected error outside a repository")
	}
}

func TestInitAndLoad(t *testing.T) {
	root := t.TempDir()

	cfg, err := Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if cfg.TeamKind != DefaultTeamKind || cfg.CrossrefRate != DefaultCrossrefRate {
		t.Errorf("Init() config = %+v, want defaults", cfg)
	}

	cfg.SiteURL = "https://lab.example.org"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A second Init keeps the existing file.
	again, err := Init(root)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if again.SiteURL != "https://lab.example.org" {
		t.Errorf("second Init() SiteURL = %q", again.SiteURL)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(PubmanagerPath(root), 0755)
	if err := os.WriteFile(ConfigPath(root), []byte(`{"site_url":"https://x.org"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TeamKind != DefaultTeamKind {
		t.Errorf("TeamKind = %q, want %q", cfg.TeamKind, DefaultTeamKind)
	}
	if cfg.CrossrefTimeout() != 30*time.Second {
		t.Errorf("CrossrefTimeout() = %v, want 30s", cfg.CrossrefTimeout())
	}
}

func TestLoad_Invalid(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(PubmanagerPath(root), 0755)
	os.WriteFile(ConfigPath(root), []byte("{not json"), 0644)
	if _, err := Load(root); err == nil {
		t.Error("Load() expected error for invalid JSON")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() expected error for missing config")
	}
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"team_kind", "lab_member", "lab_member", false},
		{"team_kind", "Lab Member", "", true},
		{"team_kind", "", "", true},
		{"site_url", "https://lab.example.org/", "https://lab.example.org", false},
		{"site_url", "lab.example.org", "", true},
		{"crossref_mailto", "admin@example.org", "admin@example.org", false},
		{"crossref_mailto", "nobody", "", true},
		{"crossref_rate", "2.5", "2.5", false},
		{"crossref_rate", "0", "", true},
		{"crossref_timeout_seconds", "10", "10", false},
		{"crossref_timeout_seconds", "ten", "", true},
		{"pdf_root", "/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	tests := []struct {
		input string
		want  string
	}{
		{"~/repo", filepath.Join(home, "repo")},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
