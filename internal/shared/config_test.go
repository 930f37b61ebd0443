package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Sync.Interval.Duration != time.Hour {
			t.Errorf("expected hourly interval, got %v", config.Sync.Interval)
		}
		if !config.Sync.DownloadNewTracks {
			t.Error("expected new tracks to be downloaded by default")
		}
		if config.Downloader.Binary != "spotdl" {
			t.Errorf("expected downloader binary spotdl, got %s", config.Downloader.Binary)
		}
		if config.Server.Port != 8888 {
			t.Errorf("expected server port 8888, got %d", config.Server.Port)
		}
		if strings.HasPrefix(config.Paths.State, "~") {
			t.Errorf("expected state path to be expanded, got %s", config.Paths.State)
		}
		if !strings.HasSuffix(config.Paths.Playlists, filepath.Join("Desktop", "Playlists")) {
			t.Errorf("expected playlists root under Desktop, got %s", config.Paths.Playlists)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[paths]
playlists = "/music/Playlists"
state = "/var/lib/spotsync/state.json"

[sync]
interval = "30m"
download_new_tracks = false
workers = 2

[downloader]
binary = "/opt/spotdl"
extra_args = ["--bitrate", "320k"]
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Paths.Playlists != "/music/Playlists" {
			t.Errorf("expected playlists root /music/Playlists, got %s", config.Paths.Playlists)
		}
		if config.Sync.Interval.Duration != 30*time.Minute {
			t.Errorf("expected 30m interval, got %v", config.Sync.Interval)
		}
		if config.Sync.DownloadNewTracks {
			t.Error("expected download_new_tracks to be false")
		}
		if len(config.Downloader.ExtraArgs) != 2 {
			t.Errorf("expected 2 extra args, got %v", config.Downloader.ExtraArgs)
		}
		if config.Server.Port != 8888 {
			t.Errorf("expected missing keys to keep defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("LoadConfig rejects bad interval", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[sync]\ninterval = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for unparsable interval")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault without file", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected defaults, got error %v", err)
		}
		if config.Downloader.Binary != "spotdl" {
			t.Errorf("expected default config, got binary %s", config.Downloader.Binary)
		}
	})

	t.Run("TokenPath", func(t *testing.T) {
		config := DefaultConfig()
		config.Paths.State = "/data/state.json"

		if got := config.TokenPath("abcdefghijkl"); got != "/data/.cache-abcdefgh" {
			t.Errorf("unexpected token path %s", got)
		}

		config.Paths.Token = "/tmp/token.json"
		if got := config.TokenPath("abcdefghijkl"); got != "/tmp/token.json" {
			t.Errorf("expected explicit token path, got %s", got)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Downloader.Binary = ""
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestCredentials(t *testing.T) {
	t.Run("empty fields are rejected and nothing is written", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		err := SaveCredentials(path, &Credentials{ClientID: "  ", ClientSecret: "secret"})
		if !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials, got %v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("credentials file should not be written")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		creds, err := NewCredentials(" id ", " secret ")
		if err != nil {
			t.Fatalf("NewCredentials() error = %v", err)
		}
		if err := SaveCredentials(path, creds); err != nil {
			t.Fatalf("SaveCredentials() error = %v", err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != `{"client_id":"id","client_secret":"secret"}` {
			t.Errorf("unexpected file contents %s", data)
		}

		loaded, err := LoadCredentials(path)
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if *loaded != *creds {
			t.Errorf("expected %+v, got %+v", creds, loaded)
		}
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

		creds, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.json"))
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if creds.ClientID != "env-id" || creds.ClientSecret != "env-secret" {
			t.Errorf("unexpected credentials %+v", creds)
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SPOTIFY_CLIENT_ID", "")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "")

		_, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.json"))
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
