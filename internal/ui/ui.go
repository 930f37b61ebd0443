package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
)

// progressLines is the number of recent progress messages kept on screen.
const progressLines = 8

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CredentialsView ViewState = iota
	PlaylistListView
	ProgressView
	ResultView
)

// ConnectFunc builds the service and engine for a set of credentials.
type ConnectFunc func(ctx context.Context, c *shared.Credentials) (services.Service, tasks.SyncEngine, error)

// Options wires the [Model] to the rest of the application.
type Options struct {
	Credentials     *shared.Credentials // Updated in place when the form is saved
	CredentialsPath string
	Connect         ConnectFunc // Used on start and after saving credentials; falls back to Service and Engine
	Service         services.Service
	Engine          tasks.SyncEngine
	DownloadOpts    tasks.BulkDownloadOpts
	DryRun          bool
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	opts         Options
	view         ViewState
	service      services.Service
	engine       tasks.SyncEngine
	width        int
	height       int
	form         credentialForm
	playlistList list.Model
	playlists    []models.Playlist
	checked      map[string]bool
	notice       string
	op           Operation
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     []string
	run          *models.SyncRun
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. Without valid credentials it opens on the credential form.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Credentials == nil {
		opts.Credentials = &shared.Credentials{}
	}

	m := &Model{
		ctx:          ctx,
		opts:         opts,
		view:         PlaylistListView,
		checked:      make(map[string]bool),
		playlistList: newPlaylistList(nil, nil),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	if opts.Credentials.Validate() != nil {
		m.openCredentials()
	}
	return m
}

func newPlaylistList(playlists []models.Playlist, checked map[string]bool) list.Model {
	l := list.New(playlistItems(playlists, checked), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Spotify Playlists"
	l.SetShowHelp(false)
	return l
}

// View returns the current view.
func (m *Model) View() string {
	switch m.view {
	case CredentialsView:
		return m.renderCredentials()
	case PlaylistListView:
		return m.renderPlaylistList()
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Init connects and fetches playlists, or blinks the cursor on the credential form.
func (m *Model) Init() tea.Cmd {
	if m.view == CredentialsView {
		return textinput.Blink
	}
	return m.connect()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeList()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CredentialsView:
			return m.handleCredentialKeys(msg)
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ProgressView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == CredentialsView {
		return m, m.form.update(msg)
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.service != nil {
			m.service = data.service
			m.engine = data.engine
		}
		m.err = data.err
		if data.err != nil {
			return m, nil
		}
		m.playlists = data.playlists
		m.playlistList = newPlaylistList(m.playlists, m.checked)
		m.resizeList()
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = append(m.progress, update.Message)
		if len(m.progress) > progressLines {
			m.progress = m.progress[len(m.progress)-progressLines:]
		}
		return m, m.waitForProgress()

	case MsgOperationComplete:
		data := msg.data.(operationComplete)
		m.run = data.run
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil

	case MsgCredentialsSaved:
		data := msg.data.(credentialsSaved)
		if data.err != nil {
			m.form.err = data.err
			return m, nil
		}
		*m.opts.Credentials = *data.credentials
		m.view = PlaylistListView
		m.notice = "Credentials saved"
		return m, m.connect()
	}
	return m, nil
}

func (m *Model) handleCredentialKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.opts.Credentials.Validate() == nil {
			m.view = PlaylistListView
			return m, nil
		}
		return m, nil
	case "tab", "shift+tab", "down", "up":
		return m, m.form.next(msg.String() == "shift+tab" || msg.String() == "up")
	case "enter":
		creds, err := m.form.credentials()
		if err != nil {
			m.form.err = err
			return m, nil
		}
		m.form.err = nil
		return m, m.saveCredentials(creds)
	}
	return m, m.form.update(msg)
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.credentials):
		return m, m.openCredentials()
	case key.Matches(msg, m.keys.toggle):
		m.toggleSelected()
		return m, nil
	case key.Matches(msg, m.keys.download):
		return m, m.startDownload()
	case key.Matches(msg, m.keys.update):
		return m, m.startUpdate()
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.run = nil
		m.err = nil
		m.notice = ""
		m.progress = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) openCredentials() tea.Cmd {
	m.form = newCredentialForm(m.opts.Credentials)
	m.view = CredentialsView
	return textinput.Blink
}

func (m *Model) resizeList() {
	if m.width > 4 && m.height > 8 {
		m.playlistList.SetSize(m.width-4, m.height-8)
	}
}

func (m *Model) toggleSelected() {
	item, ok := m.playlistList.SelectedItem().(playlistItem)
	if !ok {
		return
	}
	item.checked = !item.checked
	if item.checked {
		m.checked[item.playlist.ID] = true
	} else {
		delete(m.checked, item.playlist.ID)
	}
	m.notice = ""
	m.playlistList.SetItem(m.playlistList.GlobalIndex(), item)
}

// selected returns the checked playlists in list order.
func (m *Model) selected() []models.Playlist {
	var out []models.Playlist
	for _, p := range m.playlists {
		if m.checked[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) startUpdate() tea.Cmd {
	selected := m.selected()
	if len(selected) == 0 {
		m.notice = shared.ErrNoSelection.Error()
		return nil
	}
	if m.engine == nil {
		m.notice = shared.ErrNotAuthenticated.Error()
		return nil
	}

	ids := make([]string, len(selected))
	for i, p := range selected {
		ids[i] = p.ID
	}

	engine, ctx, dryRun := m.engine, m.ctx, m.opts.DryRun
	return m.startOperation(OpUpdate, func(progress chan<- tasks.ProgressUpdate) (*models.SyncRun, error) {
		result, err := engine.Update(ctx, progress, tasks.UpdateOpts{PlaylistIDs: ids, DryRun: dryRun})
		if result == nil {
			return nil, err
		}
		return result.Run, err
	})
}

func (m *Model) startDownload() tea.Cmd {
	selected := m.selected()
	if len(selected) == 0 {
		m.notice = shared.ErrNoSelection.Error()
		return nil
	}
	if m.engine == nil {
		m.notice = shared.ErrNotAuthenticated.Error()
		return nil
	}

	engine, ctx, opts := m.engine, m.ctx, m.opts.DownloadOpts
	return m.startOperation(OpDownload, func(progress chan<- tasks.ProgressUpdate) (*models.SyncRun, error) {
		result, err := engine.BulkDownload(ctx, progress, selected, opts)
		if result == nil {
			return nil, err
		}
		return result.Run, err
	})
}

// startOperation runs fn off the event loop and streams its progress into the model.
func (m *Model) startOperation(op Operation, fn func(chan<- tasks.ProgressUpdate) (*models.SyncRun, error)) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)

	m.op = op
	m.view = ProgressView
	m.progress = nil
	m.notice = ""
	m.progressChan = progress
	m.doneChan = done

	go func() {
		run, err := fn(progress)
		close(progress)
		done <- operationCompleteMsg(op, run, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) connect() tea.Cmd {
	ctx, opts := m.ctx, m.opts
	return func() tea.Msg {
		service, engine := opts.Service, opts.Engine
		if opts.Connect != nil {
			var err error
			service, engine, err = opts.Connect(ctx, opts.Credentials)
			if err != nil {
				return playlistsFetchedMsg(nil, nil, nil, err)
			}
		}
		if service == nil {
			return playlistsFetchedMsg(nil, nil, nil, shared.ErrNotAuthenticated)
		}

		playlists, err := service.GetPlaylists(ctx)
		return playlistsFetchedMsg(service, engine, playlists, err)
	}
}

func (m *Model) saveCredentials(creds *shared.Credentials) tea.Cmd {
	path := m.opts.CredentialsPath
	return func() tea.Msg {
		if err := shared.SaveCredentials(path, creds); err != nil {
			return credentialsSavedMsg(nil, err)
		}
		return credentialsSavedMsg(creds, nil)
	}
}

func (m *Model) renderCredentials() string {
	helpKeys := []key.Binding{m.keys.submit, m.keys.next, m.keys.back}
	return fmt.Sprintf("%s\n%s", m.form.view(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderPlaylistList() string {
	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("Error: %v", m.err))
		helpKeys := []key.Binding{m.keys.credentials, m.keys.quit}
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView(helpKeys))
	}

	var notice string
	if m.notice != "" {
		notice = "\n" + styles.warn.Render(m.notice)
	}
	helpKeys := []key.Binding{m.keys.toggle, m.keys.download, m.keys.update, m.keys.credentials, m.keys.quit}
	return fmt.Sprintf("%s%s\n\n%s", m.playlistList.View(), notice, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderProgress() string {
	title := "Updating playlists"
	if m.op == OpDownload {
		title = "Downloading playlists"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	if len(m.progress) == 0 {
		b.WriteString("Starting...\n")
	}
	for _, line := range m.progress {
		fmt.Fprintf(&b, "%s\n", line)
	}
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("%s failed: %v", m.op, m.err)))
	case m.run != nil && m.run.Status == models.RunStatusPartial:
		b.WriteString(styles.warn.Render(fmt.Sprintf("%s finished with failures", m.op)))
	default:
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ %s complete", m.op)))
	}
	b.WriteString("\n\n")

	if m.run != nil {
		b.Write(formatter.RunSummary(m.run))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}
