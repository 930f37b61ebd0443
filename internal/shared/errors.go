package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrPlaylistForbidden  = fmt.Errorf("%w: playlist access forbidden", ErrAPIRequest)
	ErrNoPlaylists        = fmt.Errorf("no playlists found")
	ErrSchedulerStopped   = fmt.Errorf("scheduler stopped")

	// Local state and filesystem errors
	ErrCorruptState      = fmt.Errorf("playlist state is unreadable")
	ErrMissingDependency = fmt.Errorf("missing external dependency")
	ErrDownloadFailed    = fmt.Errorf("download failed")
	ErrUnsafePath        = fmt.Errorf("path escapes the playlists folder")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNoSelection     = fmt.Errorf("select at least one playlist")
)

// IsAuthError reports whether err means the remote service rejected or never received credentials.
//
// Auth errors abort an entire update pass.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenExpired)
}
