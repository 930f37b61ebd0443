// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// MockService is a test double for [services.Service] backed by in-memory playlists.
//
// ExportErrors maps playlist IDs to the error ExportPlaylist returns for them.
type MockService struct {
	mu           sync.Mutex
	Playlists    []models.Playlist
	Tracks       map[string][]models.Track
	ListErr      error
	ExportErrors map[string]error
	Exports      []string // playlist IDs passed to ExportPlaylist, in call order
}

// NewMockService creates a MockService with no playlists.
func NewMockService() *MockService {
	return &MockService{
		Tracks:       make(map[string][]models.Track),
		ExportErrors: make(map[string]error),
	}
}

// AddPlaylist registers a playlist named name with the given tracks.
func (m *MockService) AddPlaylist(id, name string, tracks ...models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Playlists = append(m.Playlists, models.Playlist{
		ID:         id,
		Name:       name,
		TrackCount: len(tracks),
		URL:        "https://open.spotify.com/playlist/" + id,
	})
	m.Tracks[id] = tracks
}

// SetTracks replaces the tracks of playlist id.
func (m *MockService) SetTracks(id string, tracks ...models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tracks[id] = tracks
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]models.Playlist(nil), m.Playlists...), nil
}

func (m *MockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Playlists {
		if p.ID == playlistID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *MockService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := m.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Exports = append(m.Exports, playlistID)
	if err := m.ExportErrors[playlistID]; err != nil {
		return nil, err
	}
	return &models.PlaylistExport{
		Playlist: *playlist,
		Tracks:   append([]models.Track(nil), m.Tracks[playlistID]...),
	}, nil
}

func (m *MockService) Name() string { return "mock" }

// MockDownloader records Download calls and optionally writes a file named after the track.
//
// Files maps URLs to the file name written into the target directory on success.
type MockDownloader struct {
	mu     sync.Mutex
	Calls  []DownloadCall
	Files  map[string]string
	Errors map[string]error
	Err    error
}

// DownloadCall is one recorded [MockDownloader.Download] invocation.
type DownloadCall struct {
	URL string
	Dir string
}

func (m *MockDownloader) Download(ctx context.Context, url, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, DownloadCall{URL: url, Dir: dir})

	if err := m.Errors[url]; err != nil {
		return err
	}
	if m.Err != nil {
		return m.Err
	}
	if name, ok := m.Files[url]; ok {
		return os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0644)
	}
	return nil
}

// URLs returns the downloaded URLs in sorted order.
func (m *MockDownloader) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		urls = append(urls, c.URL)
	}
	sort.Strings(urls)
	return urls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
