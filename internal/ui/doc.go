// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [CredentialsView] : Enter the Spotify client ID and secret (secret masked). Empty values are rejected
//     and nothing is written.
//  2. [PlaylistListView] : Checkable playlist list. Space toggles, d downloads the checked playlists,
//     u reconciles them and c reopens the credential form.
//  3. [ProgressView] : Streams progress messages while an operation runs off the event loop.
//  4. [ResultView] : Summary of the finished run. r returns to the playlists.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, providing non-blocking status reporting during runs.
package ui
