package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotsync/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] with its checked state to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	checked  bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.checked {
		return "[x] " + i.playlist.Name
	}
	return "[ ] " + i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

func playlistItems(playlists []models.Playlist, checked map[string]bool) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, checked: checked[p.ID]}
	}
	return items
}
