package tasks

import (
	"fmt"

	"github.com/desertthunder/spotsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	LoadState
	ReconcilePlaylist
	DownloadTrack
	RemoveTrack
	SaveState
	DownloadPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case LoadState:
		return "load_state"
	case ReconcilePlaylist:
		return "reconcile_playlist"
	case DownloadTrack:
		return "download_track"
	case RemoveTrack:
		return "remove_track"
	case SaveState:
		return "save_state"
	case DownloadPlaylist:
		return "download_playlist"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: "Fetching playlists from Spotify...",
	}
}

func foundPlaylistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", count),
	}
}

func loadStateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadState,
		Step:    1,
		Total:   1,
		Message: "Loading playlist state...",
	}
}

func reconcilePlaylistUpdate(step, total int, p models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcilePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Checking playlist: %s", step, total, p.Name),
		Data:    p,
	}
}

func reconcileDoneUpdate(step, total int, res *PlaylistSyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcilePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (+%d / -%d)", step, total, res.Name, len(res.Added), len(res.Removed)),
		Data:    res,
	}
}

func reconcileFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcilePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func newTrackUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("New song: %s", title),
	}
}

func removeTrackUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removing old song: %s", title),
	}
}

func deleteFileUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Deleting file: %s", path),
	}
}

func saveStateUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveState,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved state for %d playlists", count),
	}
}

func downloadCompletedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, name),
	}
}

func downloadFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func downloadSkippedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s: no URL, skipped", step, total, name),
	}
}
