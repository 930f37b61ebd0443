// Package repositories implements local persistence for spotsync.
//
// Key Implementations:
//   - [StateStore] : JSON snapshot of every playlist's last observed tracks, written atomically
//   - [RunRepository] : SQLite history of update and download passes with their file-system actions
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
