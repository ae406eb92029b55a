// Package tui is the terminal front end of the anatomy explorer: an organ
// list, a detail panel with the organ's sound, and a streamed chat.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/chatclient"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/organ"
)

type focus int

const (
	focusList focus = iota
	focusInput
)

// SoundPlayer plays an organ sound in the background; the channel closes
// when playback is over.
type SoundPlayer interface {
	Play(kind organ.SoundKind) <-chan struct{}
}

type chatUpdatedMsg struct{}

type soundDoneMsg struct{}

type askDoneMsg struct{ err error }

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	organs  []organ.Record
	cursor  int
	chat    *chatclient.Chat
	updates chan struct{}
	sounds  SoundPlayer
	playing bool // one sound at a time
	focus   focus
	input   textinput.Model
	status  string
	width   int
	height  int
}

// NewModel builds the UI over organs. The chat talks to client; sounds may
// be nil.
func NewModel(ctx context.Context, organs []organ.Record, client *chatclient.Client, sounds SoundPlayer) Model {
	updates := make(chan struct{}, 1)
	c := chatclient.NewChat(client, func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	in := textinput.New()
	in.Placeholder = "Ask about this organ..."
	in.CharLimit = 500

	m := Model{
		ctx:     ctx,
		organs:  organs,
		chat:    c,
		updates: updates,
		sounds:  sounds,
		input:   in,
		width:   110,
		height:  32,
	}
	if len(organs) > 0 {
		c.Select(organs[0].Name)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

// waitForUpdate turns the chat's change notifications into messages.
func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return chatUpdatedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case chatUpdatedMsg:
		return m, waitForUpdate(m.updates)

	case soundDoneMsg:
		m.playing = false
		return m, nil

	case askDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus == focusInput {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.selectCurrent()
		}

	case "down", "j":
		if m.cursor < len(m.organs)-1 {
			m.cursor++
			m.selectCurrent()
		}

	case "p":
		return m.playSound()

	case "enter", "tab", "/":
		m.focus = focusInput
		m.input.Focus()
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.input.Blur()
		m.focus = focusList
		return m, nil

	case "enter":
		question := m.input.Value()
		if m.chat.Busy() {
			m.status = "Still answering, hold on..."
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		c, ctx := m.chat, m.ctx
		return m, func() tea.Msg {
			return askDoneMsg{err: c.Ask(ctx, question)}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) selectCurrent() {
	m.chat.Select(m.organs[m.cursor].Name)
	m.status = ""
}

func (m Model) playSound() (tea.Model, tea.Cmd) {
	if m.playing || m.sounds == nil || len(m.organs) == 0 {
		return m, nil
	}
	m.playing = true
	done := m.sounds.Play(m.organs[m.cursor].SoundKind)
	return m, func() tea.Msg {
		<-done
		return soundDoneMsg{}
	}
}

// Selected returns the organ under the cursor.
func (m Model) Selected() (organ.Record, bool) {
	if len(m.organs) == 0 {
		return organ.Record{}, false
	}
	return m.organs[m.cursor], true
}
