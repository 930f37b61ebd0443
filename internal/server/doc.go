// Package server provides the small HTTP surface of spotsync.
//
// # Router
//
// [BasicRouter] implements [Router] on top of [http.ServeMux] method patterns. [Middleware] wraps handlers
// in reverse order (last added executes first).
//
// # OAuth Callback
//
// [OAuthHandler] receives the Spotify authorization code redirect during `spotsync auth login`. It validates the
// state parameter, exchanges the code for a token and sends the result through a channel. Only the first callback
// is processed.
//
// # Metrics
//
// [Metrics] observes finished runs (it satisfies tasks.RunObserver) and exposes them on /metrics in the
// Prometheus text format. /healthz reports liveness and the last run's status. The daemon serves both with [Serve]
// next to the scheduler.
package server
