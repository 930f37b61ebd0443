// package services defines interface Service for interacting with streaming service HTTP APIs
package services

import (
	"context"

	"github.com/desertthunder/spotsync/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the read-only operations spotsync needs from a streaming service.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user, following pagination.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist retrieves a playlist with all of its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Service] for providers using the OAuth2 authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the [oauth2.Config] used by the callback handler.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs token, refreshing it transparently when it expires.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error

	// Token returns the current, possibly refreshed, token.
	Token() (*oauth2.Token, error)
}
