package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/spotsync/internal/models"
	th "github.com/desertthunder/spotsync/internal/testing"
)

func TestScan(t *testing.T) {
	t.Run("untagged files fall back to the file name", func(t *testing.T) {
		folder := t.TempDir()
		th.MustWriteFile(t, filepath.Join(folder, "SongA.mp3"), "not really audio")
		th.MustWriteFile(t, filepath.Join(folder, "SongB.FLAC"), "not really audio")
		th.MustWriteFile(t, filepath.Join(folder, "cover.jpg"), "image")
		th.MustWriteFile(t, filepath.Join(folder, "download_manifest.json"), "{}")
		if err := os.Mkdir(filepath.Join(folder, "SongC.mp3"), 0755); err != nil {
			t.Fatal(err)
		}

		files, err := Scan(folder)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 audio files, got %v", files)
		}
		if files[0].Title != "SongA" || files[0].Tagged {
			t.Errorf("unexpected first file %+v", files[0])
		}
		if files[1].Title != "SongB" {
			t.Errorf("unexpected second file %+v", files[1])
		}
	})

	t.Run("missing folder", func(t *testing.T) {
		files, err := Scan(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected no files, got %v", files)
		}
	})
}

func TestIsAudio(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"song.mp3", true},
		{"song.M4A", true},
		{"song.opus", true},
		{"song.txt", false},
		{"song", false},
	}

	for _, tt := range tests {
		if got := IsAudio(tt.name); got != tt.want {
			t.Errorf("IsAudio(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMissing(t *testing.T) {
	files := []AudioFile{
		{Path: "/music/Road Trip/Artist - SongA.mp3", Title: "Artist - SongA"},
		{Path: "/music/Road Trip/01.mp3", Title: "Café del Mar"},
	}
	tracks := models.TrackSet{
		"a": "SongA",
		"b": "SongB",
		"c": "Café del Mar",
		"d": " ",
	}

	missing := Missing(tracks, files)
	if len(missing) != 1 || missing[0] != "SongB" {
		t.Errorf("expected only SongB missing, got %v", missing)
	}
}

func TestCoverage(t *testing.T) {
	root := t.TempDir()
	th.MustWriteFile(t, filepath.Join(root, "Road Trip", "SongA.mp3"), "a")
	th.MustWriteFile(t, filepath.Join(root, "AC_DC", "Thunderstruck.mp3"), "t")

	playlists := []models.Playlist{
		{ID: "p1", Name: "Road Trip"},
		{ID: "p2", Name: "AC/DC"},
		{ID: "p3", Name: "Never Synced"},
	}
	state := models.PlaylistState{
		"p1": {"a": "SongA", "b": "SongB"},
		"p2": {"t": "Thunderstruck"},
	}

	rows, err := Coverage(context.Background(), root, playlists, state)
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].Tracks != 2 || rows[0].Files != 1 || len(rows[0].Missing) != 1 {
		t.Errorf("unexpected Road Trip row %+v", rows[0])
	}
	if rows[1].Folder != filepath.Join(root, "AC_DC") || len(rows[1].Missing) != 0 {
		t.Errorf("unexpected AC/DC row %+v", rows[1])
	}
	if rows[2].Tracks != 0 || rows[2].Files != 0 {
		t.Errorf("unexpected empty row %+v", rows[2])
	}
}
