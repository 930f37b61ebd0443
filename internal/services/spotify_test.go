package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T) *SpotifyService {
	t.Helper()
	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

// newAPIServer serves handler and returns a service authenticated against it.
func newAPIServer(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	srv := newTestService(t)
	srv.baseURL = ts.URL
	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://localhost:9999/callback" {
				t.Errorf("expected custom redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv := newTestService(t)
			if srv.config.RedirectURL != defaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Read-only scopes", func(t *testing.T) {
			srv := newTestService(t)
			scopes := strings.Join(srv.config.Scopes, " ")
			if scopes != "playlist-read-private playlist-read-collaborative" {
				t.Errorf("unexpected scopes %q", scopes)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		authURL := newTestService(t).GetAuthURL("test_state")

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv := newTestService(t)

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			token, err := srv.Token()
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			if token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", token.AccessToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("Empty token", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), &oauth2.Token{})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Requests before Authenticate", func(t *testing.T) {
		srv := newTestService(t)

		if _, err := srv.GetPlaylists(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := srv.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated from Token, got %v", err)
		}
	})

	t.Run("GetPlaylists follows pagination", func(t *testing.T) {
		var calls int
		srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
				t.Errorf("unexpected authorization header %q", got)
			}

			offset := r.URL.Query().Get("offset")
			page := SpotifyPaginatedPlaylists{Limit: 50, Total: 3}
			switch offset {
			case "0":
				next := "more"
				page.Next = &next
				page.Items = []SpotifyPlaylist{
					{ID: "p1", Name: "Road Trip", Tracks: playlistTracksRef{Total: 12}},
					{ID: "p2", Name: "Focus", ExternalURLs: externalURLs{Spotify: "https://open.spotify.com/playlist/p2"}},
				}
			case "2":
				page.Offset = 2
				page.Items = []SpotifyPlaylist{{ID: "p3", Name: "Gym"}}
			default:
				t.Errorf("unexpected offset %s", offset)
			}
			writeJSON(t, w, page)
		})

		playlists, err := srv.GetPlaylists(context.Background())
		if err != nil {
			t.Fatalf("GetPlaylists() error = %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 page requests, got %d", calls)
		}
		if len(playlists) != 3 {
			t.Fatalf("expected 3 playlists, got %d", len(playlists))
		}
		if playlists[0].TrackCount != 12 {
			t.Errorf("expected track count 12, got %d", playlists[0].TrackCount)
		}
		if playlists[0].URL != "https://open.spotify.com/playlist/p1" {
			t.Errorf("expected derived playlist URL, got %s", playlists[0].URL)
		}
		if playlists[2].Name != "Gym" {
			t.Errorf("expected last playlist Gym, got %s", playlists[2].Name)
		}
	})

	t.Run("ExportPlaylist skips local and missing tracks", func(t *testing.T) {
		srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/playlists/p1":
				writeJSON(t, w, SpotifyPlaylist{ID: "p1", Name: "Road Trip"})
			case r.URL.Path == "/playlists/p1/tracks" && r.URL.Query().Get("offset") == "0":
				next := "more"
				writeJSON(t, w, SpotifyPaginatedTracks{
					Next: &next,
					Items: []SpotifyPlaylistTrack{
						{Track: &SpotifyTrack{
							ID:          "t1",
							Name:        "Song A",
							Artists:     []SpotifyArtist{{Name: "Artist A"}, {Name: "Feature"}},
							Album:       SpotifyAlbum{Name: "Album A"},
							DurationMS:  215000,
							ExternalIDs: externalIDs{ISRC: "USRC17607839"},
						}},
						{Track: nil},
						{IsLocal: true, Track: &SpotifyTrack{Name: "Local File"}},
					},
				})
			case r.URL.Path == "/playlists/p1/tracks" && r.URL.Query().Get("offset") == "3":
				writeJSON(t, w, SpotifyPaginatedTracks{
					Items: []SpotifyPlaylistTrack{{Track: &SpotifyTrack{ID: "t2", Name: "Song B"}}},
				})
			default:
				http.NotFound(w, r)
			}
		})

		export, err := srv.ExportPlaylist(context.Background(), "p1")
		if err != nil {
			t.Fatalf("ExportPlaylist() error = %v", err)
		}
		if export.Playlist.Name != "Road Trip" {
			t.Errorf("expected playlist name Road Trip, got %s", export.Playlist.Name)
		}
		if len(export.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(export.Tracks))
		}

		first := export.Tracks[0]
		if first.Artist != "Artist A" || first.Duration != 215 || first.ISRC != "USRC17607839" {
			t.Errorf("unexpected track mapping %+v", first)
		}
		if first.URL != "https://open.spotify.com/track/t1" {
			t.Errorf("expected derived track URL, got %s", first.URL)
		}

		set := export.TrackSet()
		if set["t2"] != "Song B" {
			t.Errorf("expected t2 in track set, got %v", set)
		}
	})

	t.Run("Status mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			want   error
		}{
			{"unauthorized", http.StatusUnauthorized, shared.ErrTokenExpired},
			{"forbidden", http.StatusForbidden, shared.ErrPlaylistForbidden},
			{"not found", http.StatusNotFound, shared.ErrPlaylistNotFound},
			{"server error", http.StatusBadGateway, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, fmt.Sprintf("status %d", tt.status), tt.status)
				})

				_, err := srv.GetPlaylist(context.Background(), "p1")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if tt.status == http.StatusUnauthorized && !shared.IsAuthError(err) {
					t.Error("401 should be reported as an auth error")
				}
				if tt.status == http.StatusForbidden {
					if shared.IsAuthError(err) {
						t.Error("403 on a playlist should not abort the pass as an auth error")
					}
					if !errors.Is(err, shared.ErrAPIRequest) {
						t.Errorf("403 should wrap %v, got %v", shared.ErrAPIRequest, err)
					}
				}
			})
		}
	})

	t.Run("Service Interface", func(t *testing.T) {
		var _ Service = newTestService(t)
		var _ OAuthService = newTestService(t)
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv := newTestService(t)

		srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
		if srv.onTokenRefresh == nil {
			t.Error("expected callback to be set")
		}

		srv.SetTokenRefreshCallback(nil)
		if srv.onTokenRefresh != nil {
			t.Error("expected callback to be nil")
		}
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback when token changes", func(t *testing.T) {
			var captured []*oauth2.Token
			mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: func(token *oauth2.Token) { captured = append(captured, token) },
			}

			_, _ = source.Token()
			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if len(captured) != 2 {
				t.Errorf("expected callback called twice, got %d", len(captured))
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "same_token"}},
				callback: func(token *oauth2.Token) { callCount++ },
				last:     "same_token",
			}

			source.Token()
			source.Token()

			if callCount != 0 {
				t.Errorf("expected no callback for the initial token, got %d", callCount)
			}
		})

		t.Run("handles nil callback", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: errors.New("token source error")},
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
