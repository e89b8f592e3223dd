// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents repository configuration stored in .pubmanager/config.json.
type Config struct {
	TeamKind               string  `json:"team_kind"`                          // entity kind of team member profiles
	SiteURL                string  `json:"site_url,omitempty"`                 // base for team member permalinks
	CrossrefMailto         string  `json:"crossref_mailto,omitempty"`          // polite-pool contact address
	CrossrefRate           float64 `json:"crossref_rate,omitempty"`            // requests per second
	CrossrefTimeoutSeconds int     `json:"crossref_timeout_seconds,omitempty"` // per request
}

const (
	PubmanagerDir = ".pubmanager"
	ConfigFile    = "config.json"
	DBFile        = "pubmanager.db"

	DefaultTeamKind        = "team_member"
	DefaultCrossrefRate    = 50.0
	DefaultCrossrefTimeout = 30
)

// Keys lists the settable configuration keys.
var Keys = []string{"crossref_mailto", "crossref_rate", "crossref_timeout_seconds", "site_url", "team_kind"}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		TeamKind:               DefaultTeamKind,
		CrossrefRate:           DefaultCrossrefRate,
		CrossrefTimeoutSeconds: DefaultCrossrefTimeout,
	}
}

// PubmanagerPath returns the path to the .pubmanager directory from a root path.
func PubmanagerPath(root string) string {
	return filepath.Join(root, PubmanagerDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, PubmanagerDir, ConfigFile)
}

// DBPath returns the path to the entity store from a root path.
func DBPath(root string) string {
	return filepath.Join(root, PubmanagerDir, DBFile)
}

// IsRepository checks if the given path contains a pubmanager repository.
func IsRepository(root string) bool {
	info, err := os.Stat(PubmanagerPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a repository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		if IsRepository(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a pubmanager repository (no %s directory found)", PubmanagerDir)
		}
		abs = parent
	}
}

// Init creates the repository directory and a default config.json. An
// existing config is left untouched.
func Init(root string) (*Config, error) {
	if err := os.MkdirAll(PubmanagerPath(root), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", PubmanagerDir, err)
	}
	if _, err := os.Stat(ConfigPath(root)); err == nil {
		return Load(root)
	}
	cfg := Default()
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the repository at the given root. Unset
// fields get their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.TeamKind == "" {
		cfg.TeamKind = DefaultTeamKind
	}
	if cfg.CrossrefRate <= 0 {
		cfg.CrossrefRate = DefaultCrossrefRate
	}
	if cfg.CrossrefTimeoutSeconds <= 0 {
		cfg.CrossrefTimeoutSeconds = DefaultCrossrefTimeout
	}
	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// CrossrefTimeout returns the per-request Crossref timeout.
func (c *Config) CrossrefTimeout() time.Duration {
	return time.Duration(c.CrossrefTimeoutSeconds) * time.Second
}

// Get returns a configuration value by key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "team_kind":
		return c.TeamKind, nil
	case "site_url":
		return c.SiteURL, nil
	case "crossref_mailto":
		return c.CrossrefMailto, nil
	case "crossref_rate":
		return strconv.FormatFloat(c.CrossrefRate, 'f', -1, 64), nil
	case "crossref_timeout_seconds":
		return strconv.Itoa(c.CrossrefTimeoutSeconds), nil
	}
	return "", unknownKey(key)
}

// Set validates and assigns a configuration value by key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "team_kind":
		if err := ValidateTeamKind(value); err != nil {
			return err
		}
		c.TeamKind = value
	case "site_url":
		if err := ValidateSiteURL(value); err != nil {
			return err
		}
		c.SiteURL = strings.TrimRight(value, "/")
	case "crossref_mailto":
		if value != "" && !strings.Contains(value, "@") {
			return fmt.Errorf("invalid crossref_mailto: %q", value)
		}
		c.CrossrefMailto = value
	case "crossref_rate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			return fmt.Errorf("invalid crossref_rate: %q (must be a positive number)", value)
		}
		c.CrossrefRate = rate
	case "crossref_timeout_seconds":
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid crossref_timeout_seconds: %q (must be a positive integer)", value)
		}
		c.CrossrefTimeoutSeconds = secs
	default:
		return unknownKey(key)
	}
	return nil
}

func unknownKey(key string) error {
	keys := append([]string(nil), Keys...)
	sort.Strings(keys)
	return fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(keys, ", "))
}

// ValidateTeamKind checks that an entity kind is a lowercase identifier.
func ValidateTeamKind(kind string) error {
	if kind == "" {
		return fmt.Errorf("team_kind must not be empty")
	}
	for _, r := range kind {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return fmt.Errorf("invalid team_kind: %q (use lowercase letters, digits, _ and -)", kind)
		}
	}
	return nil
}

// ValidateSiteURL checks that the site URL is an absolute http(s) URL.
func ValidateSiteURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid site_url: %q (must be an absolute http or https URL)", raw)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
