package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Paths      PathsConfig      `toml:"paths"`
	Sync       SyncConfig       `toml:"sync"`
	Downloader DownloaderConfig `toml:"downloader"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// PathsConfig locates every file and directory spotsync reads or writes.
type PathsConfig struct {
	Playlists   string `toml:"playlists"`
	State       string `toml:"state"`
	Credentials string `toml:"credentials"`
	Token       string `toml:"token"`
}

// SyncConfig controls update passes and the scheduler.
type SyncConfig struct {
	Interval          Duration `toml:"interval"`
	DownloadNewTracks bool     `toml:"download_new_tracks"`
	DryRun            bool     `toml:"dry_run"`
	Workers           int      `toml:"workers"`
	RateLimit         float64  `toml:"rate_limit"`
}

// DownloaderConfig describes the external downloader executables.
type DownloaderConfig struct {
	Binary    string   `toml:"binary"`
	FFmpeg    string   `toml:"ffmpeg"`
	ExtraArgs []string `toml:"extra_args"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback and the metrics endpoint.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	RedirectURI string `toml:"redirect_uri"`
	MetricsAddr string `toml:"metrics_addr"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "1h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig] and all paths are expanded.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.expandPaths()
	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.expandPaths()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.Sync.Interval.Duration <= 0 {
		return fmt.Errorf("%w: sync.interval must be positive", ErrInvalidConfig)
	}
	if c.Sync.Workers < 0 {
		return fmt.Errorf("%w: sync.workers must not be negative", ErrInvalidConfig)
	}
	if c.Downloader.Binary == "" {
		return fmt.Errorf("%w: downloader.binary must be set", ErrInvalidConfig)
	}
	return nil
}

// TokenPath returns the OAuth token cache location for clientID.
//
// Mirrors the per-client ".cache-<id>" naming when paths.token is empty.
func (c *Config) TokenPath(clientID string) string {
	if c.Paths.Token != "" {
		return c.Paths.Token
	}
	prefix := clientID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return filepath.Join(filepath.Dir(c.Paths.State), ".cache-"+prefix)
}

func (c *Config) expandPaths() {
	c.Paths.Playlists = ExpandHome(c.Paths.Playlists)
	c.Paths.State = ExpandHome(c.Paths.State)
	c.Paths.Credentials = ExpandHome(c.Paths.Credentials)
	c.Paths.Token = ExpandHome(c.Paths.Token)
	c.Database.Path = ExpandHome(c.Database.Path)
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
