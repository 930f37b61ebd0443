package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/spotsync/internal/server"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// connectSpotify builds a Spotify service for credentials and authenticates it from the token cache.
//
// The service is returned even when no cached token exists so that `auth login` can use it.
// Refreshed tokens are written back to the cache.
func (r *Runner) connectSpotify(ctx context.Context, credentials *shared.Credentials) (*services.SpotifyService, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(credentials.Map(r.config.Server.RedirectURI))
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	tokenPath := r.config.TokenPath(credentials.ClientID)
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := shared.SaveToken(tokenPath, token); err != nil {
			r.logger.Warn("failed to cache refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token cached", "path", tokenPath)
	})

	token, err := shared.LoadToken(tokenPath)
	if err != nil {
		return svc, err
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return svc, err
	}
	return svc, nil
}

// AuthLogin performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and caches the exchanged token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.credentials.Validate(); err != nil {
		return fmt.Errorf("%w: run `spotsync setup credentials` first", err)
	}

	svc, err := services.NewSpotifyService(r.credentials.Map(r.config.Server.RedirectURI))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	tokenPath := r.config.TokenPath(r.credentials.ClientID)
	if err := shared.SaveToken(tokenPath, token); err != nil {
		return err
	}

	connected, err := r.connectSpotify(ctx, r.credentials)
	if err != nil {
		return fmt.Errorf("failed to authenticate with new token: %w", err)
	}
	r.setSpotify(connected)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", tokenPath)
	r.writePlain("You can now use: spotsync sync\n")
	return nil
}

// AuthStatus reports whether credentials and a cached token are available.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Spotify authorization")

	if err := r.credentials.Validate(); err != nil {
		r.writePlain("Credentials: missing (%s)\n", r.config.Paths.Credentials)
		r.writePlain("Run: spotsync setup credentials\n")
		return nil
	}
	r.writePlain("Credentials: %s\n", r.config.Paths.Credentials)
	r.writePlain("Client ID:   %s\n", r.credentials.ClientID)

	tokenPath := r.config.TokenPath(r.credentials.ClientID)
	token, err := shared.LoadToken(tokenPath)
	if err != nil {
		r.writePlain("Token:       none (%s)\n", tokenPath)
		r.writePlain("Run: spotsync auth login\n")
		return nil
	}

	r.writePlain("Token:       %s\n", tokenPath)
	switch {
	case token.Expiry.IsZero():
		r.writePlain("Expires:     never\n")
	case token.Expiry.Before(time.Now()):
		r.writePlain("Expires:     expired %s (refreshed on next use)\n", token.Expiry.Format(time.DateTime))
	default:
		r.writePlain("Expires:     %s\n", token.Expiry.Format(time.DateTime))
	}
	if token.RefreshToken == "" {
		r.writePlain("⚠ No refresh token; run `spotsync auth login` when the token expires\n")
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := callbackAddr(r.config)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		serverErrors <- server.Serve(serveCtx, serverAddr, router, r.logger)
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "url", authURL, "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = errors.New("server stopped")
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// callbackAddr is the listen address for the OAuth callback.
//
// The redirect URI's host and port win over [server] host/port so the callback always reaches us.
func callbackAddr(config *shared.Config) string {
	if u, err := url.Parse(config.Server.RedirectURI); err == nil && u.Port() != "" {
		return u.Host
	}
	return fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
}
