package models

import "time"

// Run kinds.
const (
	RunKindUpdate   = "update"
	RunKindDownload = "download"
)

// Run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial" // completed with per-playlist or per-track failures
	RunStatusFailed    = "failed"
	RunStatusDryRun    = "dry_run"
)

// Action kinds recorded for a run.
const (
	ActionDownloadTrack    = "download_track"
	ActionDownloadPlaylist = "download_playlist"
	ActionDeleteFile       = "delete_file"
	ActionFetchFailed      = "fetch_failed"
)

// SyncRun is one recorded reconciliation or bulk download pass.
type SyncRun struct {
	ID           string       `json:"id"`
	Sequence     int          `json:"sequence"`
	Kind         string       `json:"kind"`
	Status       string       `json:"status"`
	Playlists    int          `json:"playlists"`
	Added        int          `json:"added"`
	Removed      int          `json:"removed"`
	DeletedFiles int          `json:"deleted_files"`
	Failures     int          `json:"failures"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Actions      []SyncAction `json:"actions,omitempty"`
}

// SyncAction is a single file-system action taken, or intended, during a run.
type SyncAction struct {
	PlaylistID string `json:"playlist_id"`
	TrackID    string `json:"track_id,omitempty"`
	Action     string `json:"action"`
	Target     string `json:"target,omitempty"` // URL or file path
	Error      string `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
