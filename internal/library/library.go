// package library inspects the audio files already present in local playlist folders
package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// maxConcurrentScans bounds the number of folders read at once.
const maxConcurrentScans = 4

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
}

// AudioFile is one audio file in a playlist folder.
type AudioFile struct {
	Path   string `json:"path"`
	Title  string `json:"title"` // Tag title, or the file name without extension when untagged
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Tagged bool   `json:"tagged"`
}

// IsAudio reports whether name has a known audio extension.
func IsAudio(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan reads the audio files directly inside folder. A missing folder has no files.
func Scan(folder string) ([]AudioFile, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []AudioFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsAudio(entry.Name()) {
			continue
		}
		files = append(files, readFile(filepath.Join(folder, entry.Name())))
	}
	return files, nil
}

func readFile(path string) AudioFile {
	name := filepath.Base(path)
	file := AudioFile{Path: path}

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if m, err := tag.ReadFrom(f); err == nil {
			file.Title = m.Title()
			file.Artist = m.Artist()
			file.Album = m.Album()
			file.Tagged = true
		}
	}

	if file.Title == "" {
		file.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return file
}

// Missing returns the titles in tracks that no file covers, sorted.
//
// A file covers a title when its name without extension or its tag title contains it, compared in NFC.
func Missing(tracks models.TrackSet, files []AudioFile) []string {
	var missing []string
	for _, id := range tracks.IDs() {
		title := tracks[id]
		if !covered(title, files) {
			missing = append(missing, title)
		}
	}
	sort.Strings(missing)
	return missing
}

func covered(title string, files []AudioFile) bool {
	needle := norm.NFC.String(strings.TrimSpace(title))
	if needle == "" {
		return true
	}
	for _, f := range files {
		name := filepath.Base(f.Path)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.Contains(norm.NFC.String(stem), needle) || strings.Contains(norm.NFC.String(f.Title), needle) {
			return true
		}
	}
	return false
}

// Coverage compares each playlist's stored tracks with the files in its folder under root.
//
// Folders are scanned concurrently. Rows keep the order of playlists.
func Coverage(ctx context.Context, root string, playlists []models.Playlist, state models.PlaylistState) ([]formatter.CoverageRow, error) {
	rows := make([]formatter.CoverageRow, len(playlists))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScans)

	for i, p := range playlists {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			folder, err := shared.PlaylistFolder(root, p.Name)
			if err != nil {
				return err
			}
			files, err := Scan(folder)
			if err != nil {
				return err
			}

			tracks := state.Get(p.ID)
			rows[i] = formatter.CoverageRow{
				PlaylistID: p.ID,
				Name:       p.Name,
				Folder:     folder,
				Tracks:     len(tracks),
				Files:      len(files),
				Missing:    Missing(tracks, files),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
