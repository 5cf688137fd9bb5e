// Package config loads and validates the spmd configuration file, with
// environment variable interpolation and BLAKE3 integrity verification
// against a .checksums manifest next to the config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the complete spmd configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Journal  JournalConfig  `yaml:"journal"`
	Manifest string         `yaml:"manifest"`
	Regions  []RegionConfig `yaml:"regions"`
	Mailbox  MailboxConfig  `yaml:"mailbox,omitempty"`
	API      APIConfig      `yaml:"api,omitempty"`

	// PoolBudget caps concurrently in-flight messages across all services.
	PoolBudget int `yaml:"pool_budget,omitempty"`
}

// ServiceConfig defines core daemon settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// JournalConfig defines request journal storage settings.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// RegionConfig declares one addressable memory region.
type RegionConfig struct {
	Name      string `yaml:"name"`
	Base      uint64 `yaml:"base"`
	Size      uint64 `yaml:"size"`
	NonSecure bool   `yaml:"non_secure"`
}

// MailboxConfig defines the out-of-band transport settings.
type MailboxConfig struct {
	Depth int `yaml:"depth"`
}

// APIConfig defines the inspection HTTP server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is a single bearer token with full access. Prefer Tokens
	// for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "spmd",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Journal: JournalConfig{
			Path:      "./data/journal.db",
			Retention: 30 * 24 * time.Hour,
		},
		Manifest:   "./services.yaml",
		Mailbox:    MailboxConfig{Depth: 4},
		API:        APIConfig{Enabled: false, Listen: "127.0.0.1:8080"},
		PoolBudget: 32,
	}
}

// Load reads, interpolates, hash-verifies, and validates a config file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DiscoverConfigPath finds the configuration by checking standard
// locations: $SPMD_CONFIG_DIR, ~/.config/spmd, /etc/spmd, ./config.yaml.
func DiscoverConfigPath() (string, error) {
	if dir := os.Getenv("SPMD_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "spmd")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	systemConfigDir := "/etc/spmd"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	legacyConfigPath := "./config.yaml"
	if _, err := os.Stat(legacyConfigPath); err == nil {
		return legacyConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $SPMD_CONFIG_DIR, ~/.config/spmd, /etc/spmd, ./config.yaml)")
}

// verifyConfigHash checks the config file against the .checksums manifest
// in its directory. A missing manifest skips verification; a manifest that
// omits or mismatches the file is a hard failure.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	checksums, err := LoadChecksums(dir)
	if err != nil {
		return nil
	}

	basename := filepath.Base(path)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: spmd config lock --config %s", basename, dir, path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: spmd config lock --config %s", path, err, path)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = defaults.Journal.Path
	}
	if cfg.Journal.Retention == 0 {
		cfg.Journal.Retention = defaults.Journal.Retention
	}

	if cfg.Manifest == "" {
		cfg.Manifest = defaults.Manifest
	}
	if cfg.Mailbox.Depth == 0 {
		cfg.Mailbox.Depth = defaults.Mailbox.Depth
	}
	if !cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API = defaults.API
	}
	if cfg.PoolBudget == 0 {
		cfg.PoolBudget = defaults.PoolBudget
	}
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	if cfg.Journal.Retention < 0 {
		return fmt.Errorf("journal.retention must not be negative")
	}
	if cfg.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if cfg.Mailbox.Depth < 0 {
		return fmt.Errorf("mailbox.depth must not be negative")
	}
	if cfg.PoolBudget <= 0 {
		return fmt.Errorf("pool_budget must be positive")
	}

	if len(cfg.Regions) == 0 {
		return fmt.Errorf("at least one memory region is required")
	}
	seen := make(map[string]bool, len(cfg.Regions))
	for i, r := range cfg.Regions {
		if r.Name == "" {
			return fmt.Errorf("regions[%d].name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("regions[%d]: duplicate region name %q", i, r.Name)
		}
		seen[r.Name] = true
		if r.Size == 0 {
			return fmt.Errorf("region %q: size must be positive", r.Name)
		}
	}

	if cfg.API.Enabled {
		if envVarPattern.MatchString(cfg.API.Auth.APIKey) {
			matches := envVarPattern.FindStringSubmatch(cfg.API.Auth.APIKey)
			if len(matches) > 1 {
				return fmt.Errorf("api.auth.api_key: environment variable ${%s} is not set", matches[1])
			}
			return fmt.Errorf("api.auth.api_key: unresolved environment variable")
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				return fmt.Errorf("api.auth.tokens[%d].token is required", i)
			}
			if envVarPattern.MatchString(tok.Token) {
				matches := envVarPattern.FindStringSubmatch(tok.Token)
				if len(matches) > 1 {
					return fmt.Errorf("api.auth.tokens[%d].token: environment variable ${%s} is not set", i, matches[1])
				}
				return fmt.Errorf("api.auth.tokens[%d].token: unresolved environment variable", i)
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
	}

	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is and caught by validation.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
