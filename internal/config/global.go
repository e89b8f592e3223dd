package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/pubmanager/config.yml.
type GlobalConfig struct {
	DefaultRepo       string `yaml:"default_repo,omitempty"`
	CrossrefMailto    string `yaml:"crossref_mailto,omitempty"`
	AdminSecret       string `yaml:"admin_secret,omitempty"`        // HMAC key for admin tokens
	AdminPasswordHash string `yaml:"admin_password_hash,omitempty"` // bcrypt, enables password login
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "pubmanager"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// AdminSecretEnv overrides admin_secret.
	AdminSecretEnv = "PM_ADMIN_SECRET"
)

var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pubmanager/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}
	if cfg.DefaultRepo != "" {
		cfg.DefaultRepo = ExpandPath(cfg.DefaultRepo)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// AdminSecret returns the admin token signing secret. The environment
// variable wins over the global config.
func AdminSecret() string {
	if s := os.Getenv(AdminSecretEnv); s != "" {
		return s
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.AdminSecret
}

// AdminPasswordHash returns the bcrypt hash accepted by the admin login.
func AdminPasswordHash() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.AdminPasswordHash
}

// DefaultRepo returns the repository used when none is found from the
// working directory.
func DefaultRepo() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.DefaultRepo
}

// Mailto returns the Crossref contact address, preferring the repository
// setting over the global one.
func (c *Config) Mailto() string {
	if c.CrossrefMailto != "" {
		return c.CrossrefMailto
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.CrossrefMailto
}
