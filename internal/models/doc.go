// Package models defines the data types shared by the services, tasks and repositories packages.
//
//   - [Playlist] : Basic playlist metadata from the streaming service
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata
//   - [TrackSet] : track ID → title mapping observed for one playlist
//   - [PlaylistState] : playlist ID → [TrackSet], the persisted snapshot
//   - [SyncRun] / [SyncAction] : history of reconciliation and download passes
package models
