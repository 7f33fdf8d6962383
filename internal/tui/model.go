// Package tui is the terminal front-end: one text field, a generate button
// (also bound to Enter) and a download button.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/log"
)

type Session interface {
	Start(ctx context.Context, raw string) (lifecycle.State, error)
	Download(ctx context.Context) (string, error)
}

type focus int

const (
	focusInput focus = iota
	focusGenerate
	focusDownload
	focusCount
)

type (
	StateMsg      lifecycle.State
	startedMsg    struct{ err error }
	downloadedMsg struct {
		location string
		err      error
	}
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	buttonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Padding(0, 1)
	activeStyle = buttonStyle.Background(lipgloss.Color("7")).Foreground(lipgloss.Color("0"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type Model struct {
	ctx     context.Context
	session Session
	size    int

	input   textinput.Model
	spinner spinner.Model
	focus   focus

	state   lifecycle.State
	preview string
	notice  string
}

func New(ctx context.Context, session Session, size int) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text or URL"
	ti.CharLimit = 2048
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		ctx:     ctx,
		session: session,
		size:    size,
		input:   ti,
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			step := focus(1)
			if msg.String() == "shift+tab" {
				step = focusCount - 1
			}
			m.focus = (m.focus + step) % focusCount
			if m.focus == focusInput {
				return m, m.input.Focus()
			}
			m.input.Blur()
			return m, nil
		case "enter":
			if m.focus == focusDownload {
				return m, m.download()
			}
			return m, m.generate()
		case "ctrl+s":
			return m, m.download()
		}

	case StateMsg:
		return m.applyState(lifecycle.State(msg))

	case startedMsg:
		switch {
		case errors.Is(msg.err, lifecycle.ErrBusy):
			m.notice = "Already generating, please wait"
		case msg.err != nil && !errors.Is(msg.err, lifecycle.ErrSuperseded):
			m.notice = msg.err.Error()
		}
		return m, nil

	case downloadedMsg:
		switch {
		case errors.Is(msg.err, lifecycle.ErrNoImageAvailable):
			m.notice = "No QR code to download yet"
		case msg.err != nil:
			m.notice = "Download failed: " + msg.err.Error()
		default:
			m.notice = "Saved to " + msg.location
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Phase != lifecycle.Requesting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus != focusInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyState(s lifecycle.State) (tea.Model, tea.Cmd) {
	m.state = s
	m.preview = ""
	switch s.Phase {
	case lifecycle.Validating:
		m.notice = ""
	case lifecycle.Requesting:
		return m, m.spinner.Tick
	case lifecycle.Succeeded:
		if data, err := s.Handle.Bytes(); err == nil {
			if preview, err := Preview(data, m.size); err == nil {
				m.preview = preview
			} else {
				log.FromContextOrDiscard(m.ctx).WithGroup("tui").Debug("preview unavailable", "error", err)
			}
		}
	}
	return m, nil
}

func (m Model) generate() tea.Cmd {
	raw := m.input.Value()
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		_, err := session.Start(ctx, raw)
		return startedMsg{err}
	}
}

func (m Model) download() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		location, err := session.Download(ctx)
		return downloadedMsg{location, err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("QR Code Generator"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.button("Generate", focusGenerate, m.state.Busy()))
	b.WriteString(" ")
	b.WriteString(m.button("Download", focusDownload, m.state.Phase != lifecycle.Succeeded))
	b.WriteString("\n\n")

	switch m.state.Phase {
	case lifecycle.Requesting:
		fmt.Fprintf(&b, "%s Generating...\n", m.spinner.View())
	case lifecycle.Succeeded:
		h := m.state.Handle
		b.WriteString(okStyle.Render(fmt.Sprintf("QR code ready: %d bytes (%s)", h.Len(), h.MIMEType())))
		b.WriteString("\n")
		if m.preview != "" {
			b.WriteString("\n" + m.preview + "\n")
		}
	case lifecycle.Failed:
		b.WriteString(errorStyle.Render(m.state.Message))
		b.WriteString("\n")
	default:
		b.WriteString("Type text or a URL and press Enter\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + m.notice + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter: generate • ctrl+s: download • tab: focus • esc: quit"))
	return b.String()
}

func (m Model) button(label string, f focus, disabled bool) string {
	text := "[ " + label + " ]"
	switch {
	case m.focus == f:
		return activeStyle.Render(text)
	case disabled:
		return helpStyle.Padding(0, 1).Render(text)
	default:
		return buttonStyle.Render(text)
	}
}
