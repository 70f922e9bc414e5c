package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgurstats/pkg/fetch"
)

// Notice is one line of the notice log.
type Notice struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the full screen view of one fetch command. A command may run
// several sessions one after another; the view follows whichever reported
// last.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	title     string
	scope     string
	state     fetch.State
	step      fetch.Step
	pages     int
	startTime time.Time
	now       func() time.Time

	notices    []Notice
	maxNotices int

	cancel     func()
	cancelling bool
	finished   bool
	err        error

	width    int
	height   int
	showHelp bool
}

// NewModel creates a view titled title. cancel is called once when the user
// asks to stop.
func NewModel(title string, cancel func()) *Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return &Model{
		spinner:    s,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		title:      title,
		state:      fetch.StateInit,
		startTime:  time.Now(),
		now:        time.Now,
		maxNotices: 8,
		cancel:     cancel,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) setState(scope string, state fetch.State) {
	if m.scope != scope {
		m.scope = scope
		m.pages = 0
		m.step = fetch.Step{}
	}
	m.state = state
	switch state {
	case fetch.StateThrottleBackoff:
		m.addNotice("WARN", "cooling down before the next round")
	case fetch.StateCancelled:
		m.addNotice("ERROR", "cancelled, nothing was saved")
	case fetch.StateDone:
		m.addNotice("SUCCESS", scope+" saved")
	}
}

func (m *Model) setStep(scope string, step fetch.Step) {
	m.scope = scope
	m.step = step
	m.pages++
}

func (m *Model) requestCancel() {
	if m.cancelling || m.finished {
		return
	}
	m.cancelling = true
	m.addNotice("WARN", "stopping after the current page")
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) addNotice(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}
	m.notices = append(m.notices, Notice{Time: m.now(), Level: level, Message: message, Color: color})
	if len(m.notices) > m.maxNotices {
		m.notices = m.notices[len(m.notices)-m.maxNotices:]
	}
}

// Elapsed is the time since the view started.
func (m *Model) Elapsed() time.Duration {
	return m.now().Sub(m.startTime)
}
