// Package services defines the [Service] interface for music streaming providers and implements it for Spotify.
//
// # Service Interface
//
// The sync engine only reads from a provider: it lists the user's playlists and exports
// a playlist's tracks. Writes are never issued.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The [oauth2.Client] refreshes expired tokens using the refresh token; the refreshed
// token is available through [SpotifyService.Token] so callers can persist it.
//
// Listing endpoints are paginated. GetPlaylists and ExportPlaylist walk every page
// until the API reports no "next" link.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAuthFailed] : token refresh or scope rejected
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//
// # API Mappings
//
// [SpotifyPlaylist] maps to [models.Playlist] and playlist items to [models.Track] with ISRC from external_ids.
// Local files and unavailable items have no track ID and are skipped.
package services
