package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/shared"
)

const (
	fieldClientID = iota
	fieldClientSecret
	fieldCount
)

// credentialForm edits the Spotify client ID and secret. The secret is masked.
type credentialForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    error
}

func newCredentialForm(c *shared.Credentials) credentialForm {
	var f credentialForm

	id := textinput.New()
	id.Placeholder = "Spotify client ID"
	id.Prompt = "Client ID:     "
	id.CharLimit = 128

	secret := textinput.New()
	secret.Placeholder = "Spotify client secret"
	secret.Prompt = "Client secret: "
	secret.CharLimit = 128
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'

	if c != nil {
		id.SetValue(c.ClientID)
		secret.SetValue(c.ClientSecret)
	}

	f.inputs[fieldClientID] = id
	f.inputs[fieldClientSecret] = secret
	f.setFocus(fieldClientID)
	return f
}

func (f *credentialForm) setFocus(i int) tea.Cmd {
	f.focus = i
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == i {
			cmd = f.inputs[j].Focus()
			f.inputs[j].PromptStyle = styles.focus
		} else {
			f.inputs[j].Blur()
			f.inputs[j].PromptStyle = styles.label
		}
	}
	return cmd
}

// next moves focus forward, or backward for shift+tab.
func (f *credentialForm) next(backward bool) tea.Cmd {
	step := 1
	if backward {
		step = fieldCount - 1
	}
	return f.setFocus((f.focus + step) % fieldCount)
}

// update forwards msg to the focused input.
func (f *credentialForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// credentials validates the current values. Nothing is returned for empty fields.
func (f *credentialForm) credentials() (*shared.Credentials, error) {
	return shared.NewCredentials(f.inputs[fieldClientID].Value(), f.inputs[fieldClientSecret].Value())
}

func (f credentialForm) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Spotify API credentials"))
	b.WriteString("\n")
	b.WriteString(styles.help.Render("Create an app at https://developer.spotify.com/dashboard and paste its credentials."))
	b.WriteString("\n\n")
	for _, in := range f.inputs {
		fmt.Fprintf(&b, "%s\n", in.View())
	}
	if f.err != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(f.err.Error()))
	}
	return b.String()
}
