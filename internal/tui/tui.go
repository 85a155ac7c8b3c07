// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tui renders the session in the terminal. It holds no session
// logic: Enter submits the input line and everything shown comes from the
// message log and the session snapshot.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/holomush/holoclient/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Session is what the TUI needs from the session machine.
type Session interface {
	Submit(text string)
	Snapshot() session.Snapshot
	// Lines returns message log entries from index since onward.
	Lines(since int) []string
	Changes() <-chan struct{}
	Done() <-chan struct{}
}

// FromMachine adapts a session.Machine to Session.
func FromMachine(m *session.Machine) Session {
	return machineSession{m}
}

type machineSession struct {
	*session.Machine
}

func (s machineSession) Lines(since int) []string {
	return s.Log().Since(since)
}

// scrollKeys leaves letters and space to the input line.
var scrollKeys = viewport.KeyMap{
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	PageUp:   key.NewBinding(key.WithKeys("pgup")),
	Up:       key.NewBinding(key.WithKeys("up")),
	Down:     key.NewBinding(key.WithKeys("down")),
}

type changedMsg struct{}

type doneMsg struct{}

// Model is the bubbletea model for one session.
type Model struct {
	session  Session
	title    string
	viewport viewport.Model
	input    textinput.Model
	lines    []string
	seen     int
	snap     session.Snapshot
	ready    bool
}

// New creates a model for s. title is shown in the header.
func New(s Session, title string) *Model {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 50
	ti.Focus()

	m := &Model{session: s, title: title, input: ti}
	m.refresh()
	return m
}

// Init starts the cursor blink and the change watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.session.Changes():
			return changedMsg{}
		case <-m.session.Done():
			return doneMsg{}
		}
	}
}

// Update handles keys, resizes and session changes.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.session.Submit(m.input.Value())
			m.input.SetValue("")
			return m, nil
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.KeyMap = scrollKeys
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.input.Width = msg.Width - 4

	case changedMsg:
		m.refresh()
		return m, m.waitForChange()

	case doneMsg:
		return m, tea.Quit
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh pulls new log lines and the latest snapshot.
func (m *Model) refresh() {
	if fresh := m.session.Lines(m.seen); len(fresh) > 0 {
		m.lines = append(m.lines, fresh...)
		m.seen += len(fresh)
		if m.ready {
			// keep the user's scroll position unless they are following
			atBottom := m.viewport.AtBottom()
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
	}

	m.snap = m.session.Snapshot()
	m.input.Placeholder = m.snap.Prompt
	if m.snap.Secret {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
}

// View renders the header, log, input line and status bar.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s",
		titleStyle.Render(m.title),
		m.viewport.View(),
		inputStyle.Render("> "+m.input.View()),
		m.status(),
	)
}

func (m *Model) status() string {
	conn := offlineStyle.Render("disconnected")
	if m.snap.Connected {
		conn = onlineStyle.Render("connected")
	}
	auth := "logged out"
	if m.snap.LoggedIn {
		auth = "logged in"
	}
	return conn + helpStyle.Render(" • "+auth+" • Enter: send • Ctrl+C/Esc: quit")
}

// Run shows the TUI until the user quits, the session stops or ctx is
// cancelled.
func Run(ctx context.Context, s Session, title string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(s, title), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err //nolint:wrapcheck // returned to the command as-is
	}
	return nil
}
