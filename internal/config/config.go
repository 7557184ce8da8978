// Package config handles geoasset configuration parsing and location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adamancini/geoasset/internal/types"
)

const (
	// DefaultAPIBaseURL is the GitHub REST endpoint used for release lookups.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultCodeloadBaseURL serves branch tarballs.
	DefaultCodeloadBaseURL = "https://codeload.github.com"
	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "geoasset"

	appName = "geoasset"
	geoDir  = "geo"
)

// ErrNotFound is returned by FindConfig when no config file exists.
var ErrNotFound = errors.New("no config file found in standard locations")

// ProxyConfig routes requests through a local SOCKS5 listener.
type ProxyConfig struct {
	SOCKS5   string `yaml:"socks5,omitempty" toml:"socks5,omitempty" json:"socks5,omitempty"` // host:port
	Username string `yaml:"username,omitempty" toml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty" json:"password,omitempty"`
}

// Enabled reports whether a SOCKS5 address is configured.
func (p ProxyConfig) Enabled() bool {
	return p.SOCKS5 != ""
}

// LogConfig controls logging output.
type LogConfig struct {
	Level types.LogLevel `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
	File  string         `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
}

// Config represents the parsed configuration file.
type Config struct {
	Version         int            `yaml:"version" toml:"version" json:"version"`
	Provider        types.Provider `yaml:"provider" toml:"provider" json:"provider"`
	StableOnly      bool           `yaml:"stable_only,omitempty" toml:"stable_only,omitempty" json:"stable_only,omitempty"` // skip rule-set-unstable branches
	CustomLinks     []string       `yaml:"custom_links,omitempty" toml:"custom_links,omitempty" json:"custom_links,omitempty"`
	AssetsDir       string         `yaml:"assets_dir,omitempty" toml:"assets_dir,omitempty" json:"assets_dir,omitempty"`
	CacheDir        string         `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	GitHubToken     string         `yaml:"github_token,omitempty" toml:"github_token,omitempty" json:"github_token,omitempty"`
	UserAgent       string         `yaml:"user_agent,omitempty" toml:"user_agent,omitempty" json:"user_agent,omitempty"`
	APIBaseURL      string         `yaml:"api_base_url,omitempty" toml:"api_base_url,omitempty" json:"api_base_url,omitempty"`
	CodeloadBaseURL string         `yaml:"codeload_base_url,omitempty" toml:"codeload_base_url,omitempty" json:"codeload_base_url,omitempty"`
	Proxy           ProxyConfig    `yaml:"proxy,omitempty" toml:"proxy,omitempty" json:"proxy,omitempty"`
	Log             LogConfig      `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{Version: 1, Provider: types.ProviderOfficial}
	c.applyDefaults()
	return c
}

// applyDefaults fills unset fields. Directory defaults follow XDG.
func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = types.ProviderOfficial
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.CodeloadBaseURL == "" {
		c.CodeloadBaseURL = DefaultCodeloadBaseURL
	}
	if c.Log.Level == "" {
		c.Log.Level = types.LogLevelInfo
	}
	if c.AssetsDir == "" {
		c.AssetsDir = xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	if c.CacheDir == "" {
		c.CacheDir = xdgDir("XDG_CACHE_HOME", ".cache")
	}
}

func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			// Relative to the working directory as a last resort
			return appName
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName)
}

// DestinationDir is the flat directory rule-set files are extracted into.
// Version files live in its parent, AssetsDir.
func (c *Config) DestinationDir() string {
	return filepath.Join(c.AssetsDir, geoDir)
}

// CatalogPath is the SQLite database holding user-added assets.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.AssetsDir, "assets.db")
}

// FindConfig searches for a config file in the standard locations.
// Returns the path to the first file found, or ErrNotFound.
func FindConfig(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv("GEOASSET_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	searchPaths := []string{
		filepath.Join(xdgConfig, appName),
		filepath.Join(home, "."+appName),
	}

	fileNames := []string{
		"config.yaml",
		"config.yml",
		"config.toml",
		"config.json",
		"config",
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(content, path)
}

// Parse decodes and validates config content. The path is only used to
// detect the format from its extension.
func Parse(content []byte, path string) (*Config, error) {
	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultPath is where geoasset init writes a new config file.
func DefaultPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", appName, "config.yaml")
}

// Resolve locates and loads the configuration. A missing file yields
// Default(); an explicitly named missing file is an error.
func Resolve(explicitPath string) (*Config, string, error) {
	path, err := FindConfig(explicitPath)
	if errors.Is(err, ErrNotFound) {
		return Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
