package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgProgressUpdate
	MsgOperationComplete
	MsgCredentialsSaved
)

// Operation names a long-running action started from the playlist view.
type Operation int

const (
	OpUpdate Operation = iota
	OpDownload
)

func (o Operation) String() string {
	switch o {
	case OpUpdate:
		return "Update"
	case OpDownload:
		return "Download"
	default:
		return ""
	}
}

type playlistsFetched struct {
	service   services.Service // Set when the fetch established a new connection
	engine    tasks.SyncEngine
	playlists []models.Playlist
	err       error
}

type operationComplete struct {
	op  Operation
	run *models.SyncRun
	err error
}

type credentialsSaved struct {
	credentials *shared.Credentials
	err         error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(service services.Service, engine tasks.SyncEngine, playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{service, engine, playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// operationCompleteMsg is the constructor for [MsgOperationComplete]
func operationCompleteMsg(op Operation, run *models.SyncRun, err error) Msg {
	return Msg{kind: MsgOperationComplete, data: operationComplete{op, run, err}}
}

// credentialsSavedMsg is the constructor for [MsgCredentialsSaved]
func credentialsSavedMsg(c *shared.Credentials, err error) Msg {
	return Msg{kind: MsgCredentialsSaved, data: credentialsSaved{c, err}}
}
