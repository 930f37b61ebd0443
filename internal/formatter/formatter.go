// package formatter renders playlists, run history and download manifests as CSV, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Duration, ISRC
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DownloadManifest summarises a bulk download.
type DownloadManifest struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	OutputDirectory string          `json:"output_directory"`
	TotalPlaylists  int             `json:"total_playlists"`
	Successful      int             `json:"successful_downloads"`
	Failed          int             `json:"failed_downloads"`
	Skipped         int             `json:"skipped"`
	Playlists       []ManifestEntry `json:"playlists"`
}

// ManifestEntry is one playlist in a [DownloadManifest].
type ManifestEntry struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	URL          string `json:"url,omitempty"`
	Folder       string `json:"folder"`
	Status       string `json:"status"` // success, failed or skipped
	Error        string `json:"error,omitempty"`
}

// WriteDownloadManifest writes m as indented JSON to path, creating parent directories.
func WriteDownloadManifest(m DownloadManifest, path string) error {
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now()
	}
	if m.Playlists == nil {
		m.Playlists = []ManifestEntry{}
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// RunSummary renders a run and its actions as plain text.
func RunSummary(run *models.SyncRun) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run #%d (%s) %s\n", run.Sequence, run.Kind, run.Status)
	fmt.Fprintf(&buf, "  Started:   %s\n", run.StartedAt.Format(time.DateTime))
	fmt.Fprintf(&buf, "  Duration:  %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(&buf, "  Playlists: %d\n", run.Playlists)
	if run.Kind == models.RunKindUpdate {
		fmt.Fprintf(&buf, "  Added:     %d\n", run.Added)
		fmt.Fprintf(&buf, "  Removed:   %d (%d files deleted)\n", run.Removed, run.DeletedFiles)
	}
	fmt.Fprintf(&buf, "  Failures:  %d\n", run.Failures)
	if run.Error != "" {
		fmt.Fprintf(&buf, "  Error:     %s\n", run.Error)
	}

	if len(run.Actions) > 0 {
		buf.WriteString("\n")
		for _, a := range run.Actions {
			mark := "✓"
			if a.Error != "" {
				mark = "✗"
			}
			fmt.Fprintf(&buf, "  %s %-17s %s", mark, a.Action, a.Target)
			if a.Error != "" {
				fmt.Fprintf(&buf, " (%s)", a.Error)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// RunsToText renders one line per run, newest first as given.
func RunsToText(runs []*models.SyncRun) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes()
	}

	for _, run := range runs {
		fmt.Fprintf(&buf, "#%-4d %s  %-8s  %-9s  playlists=%d +%d -%d deleted=%d failures=%d\n",
			run.Sequence,
			run.StartedAt.Format(time.DateTime),
			run.Kind,
			run.Status,
			run.Playlists,
			run.Added,
			run.Removed,
			run.DeletedFiles,
			run.Failures,
		)
	}
	return buf.Bytes()
}

// CoverageRow compares a playlist's stored track count with the audio files in its folder.
type CoverageRow struct {
	PlaylistID string   `json:"playlist_id"`
	Name       string   `json:"name"`
	Folder     string   `json:"folder"`
	Tracks     int      `json:"tracks"`
	Files      int      `json:"files"`
	Missing    []string `json:"missing,omitempty"` // Titles with no matching file
}

// CoverageToText renders coverage rows as plain text.
func CoverageToText(rows []CoverageRow) []byte {
	var buf bytes.Buffer
	if len(rows) == 0 {
		buf.WriteString("No playlists in state. Run `spotsync sync` first.\n")
		return buf.Bytes()
	}

	for _, row := range rows {
		fmt.Fprintf(&buf, "%s\n", row.Name)
		fmt.Fprintf(&buf, "   Folder: %s\n", row.Folder)
		fmt.Fprintf(&buf, "   Tracks: %d, files: %d, missing: %d\n", row.Tracks, row.Files, len(row.Missing))
		for _, title := range row.Missing {
			fmt.Fprintf(&buf, "     - %s\n", title)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
