package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"imgurstats/pkg/fetch"
)

// StateMsg reports a session state change.
type StateMsg struct {
	Scope string
	State fetch.State
}

// StepMsg reports progress after a page.
type StepMsg struct {
	Scope string
	Step  fetch.Step
}

// NoticeMsg adds a line to the notice log.
type NoticeMsg struct {
	Scope   string
	Message string
}

// FinishedMsg ends the view once the command's work returned.
type FinishedMsg struct {
	Err error
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 16; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case StateMsg:
		m.setState(msg.Scope, msg.State)
		return m, nil

	case StepMsg:
		m.setStep(msg.Scope, msg.Step)
		return m, nil

	case NoticeMsg:
		m.addNotice("WARN", msg.Message)
		return m, nil

	case FinishedMsg:
		m.finished = true
		m.err = msg.Err
		if msg.Err != nil {
			m.addNotice("ERROR", msg.Err.Error())
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if m.finished {
			return m, tea.Quit
		}
		m.requestCancel()
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	return m, nil
}
