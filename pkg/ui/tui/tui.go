// Package tui is the full screen view of a running fetch, built on
// bubbletea. TUI implements fetch.Progress so a Driver reports into it
// directly.
package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"imgurstats/pkg/fetch"
)

// TUI runs the view while a command's work runs beside it.
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ fetch.Progress = (*TUI)(nil)

// NewTUI creates a view. cancel is called when the user stops the fetch.
func NewTUI(title string, cancel func(), in io.Reader, out io.Writer) *TUI {
	model := NewModel(title, cancel)
	opts := []tea.ProgramOption{tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	return &TUI{program: tea.NewProgram(model, opts...), model: model}
}

// Run shows the view until work returns, then returns work's error.
// Quitting the view early cancels work but still waits for it.
func (t *TUI) Run(work func() error) error {
	done := make(chan error, 1)
	go func() {
		err := work()
		t.program.Send(FinishedMsg{Err: err})
		done <- err
	}()

	if _, err := t.program.Run(); err != nil {
		t.model.requestCancel()
		<-done
		return err
	}
	return <-done
}

func (t *TUI) OnState(scope string, state fetch.State) {
	t.program.Send(StateMsg{Scope: scope, State: state})
}

func (t *TUI) OnStep(scope string, step fetch.Step) {
	t.program.Send(StepMsg{Scope: scope, Step: step})
}

func (t *TUI) OnNotice(scope, message string) {
	t.program.Send(NoticeMsg{Scope: scope, Message: message})
}
