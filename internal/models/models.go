// package models defines the data model for playlist synchronisation
package models

import "sort"

// Playlist represents a music playlist from the streaming service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"` // Canonical web URL handed to the downloader
}

// PlaylistExport represents a playlist with all its tracks.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Track represents a music track.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration,omitempty"` // Duration in seconds
	ISRC     string `json:"isrc,omitempty"`
	URL      string `json:"url,omitempty"`
}

// TrackSet maps track IDs to track titles.
//
// A track ID appears at most once per playlist by construction.
type TrackSet map[string]string

// PlaylistState maps playlist IDs to the last observed [TrackSet].
type PlaylistState map[string]TrackSet

// TrackSet builds the ID → title mapping for the export's tracks.
//
// Tracks without an ID (local files, removed episodes) are skipped.
func (e *PlaylistExport) TrackSet() TrackSet {
	set := make(TrackSet, len(e.Tracks))
	for _, t := range e.Tracks {
		if t.ID == "" {
			continue
		}
		set[t.ID] = t.Title
	}
	return set
}

// IDs returns the set's track IDs in sorted order.
func (s TrackSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a copy of s.
func (s TrackSet) Clone() TrackSet {
	out := make(TrackSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the stored tracks of playlistID, or an empty set when the playlist has never been seen.
func (p PlaylistState) Get(playlistID string) TrackSet {
	if tracks, ok := p[playlistID]; ok && tracks != nil {
		return tracks
	}
	return TrackSet{}
}

// Put replaces the stored tracks of playlistID.
func (p PlaylistState) Put(playlistID string, tracks TrackSet) {
	if tracks == nil {
		tracks = TrackSet{}
	}
	p[playlistID] = tracks
}
