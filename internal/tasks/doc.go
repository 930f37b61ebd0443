// Package tasks keeps local playlist folders in step with the user's Spotify playlists.
//
// # Core Operations
//
// The [SyncEngine] interface defines two operations:
//
//  1. [SyncEngine.Update] : One reconciliation pass
//     - Lists the user's playlists and loads the stored snapshot
//     - Diffs each playlist's tracks against the snapshot by track ID
//     - Downloads added tracks (when enabled) and deletes files of removed ones
//     - Saves the new snapshot once at the end of the pass
//
//  2. [SyncEngine.BulkDownload] : Download whole playlists
//     - One folder per playlist under the output directory
//     - Bounded worker pool, paced by a rate limiter
//     - Writes a download manifest next to the folders
//
// [Scheduler] runs update passes on an interval and on demand, one at a time.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// Every finished pass is handed to the optional [RunRecorder] (repositories.RunRepository) and to each
// [RunObserver] (server.Metrics). Recording failures are logged and never fail the pass.
package tasks
