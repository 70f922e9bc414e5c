package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/fetch"
)

func newTestModel(cancel func()) *Model {
	m := NewModel("fetch posts", cancel)
	start := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	m.startTime = start
	m.now = func() time.Time { return start.Add(75 * time.Second) }
	return m
}

func TestModelFollowsSession(t *testing.T) {
	m := newTestModel(nil)

	m.Update(StateMsg{Scope: "alice", State: fetch.StateFetching})
	m.Update(StepMsg{Scope: "alice", Step: fetch.Step{Page: 0, Processed: 40, Total: 200}})
	m.Update(StepMsg{Scope: "alice", Step: fetch.Step{Page: 1, Processed: 100, Total: 200}})

	assert.Equal(t, "alice", m.scope)
	assert.Equal(t, fetch.StateFetching, m.state)
	assert.Equal(t, 2, m.pages)
	assert.InDelta(t, 0.5, m.step.Fraction(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "fetch posts")
	assert.Contains(t, view, "100 of 200")
	assert.Contains(t, view, "1m15s")

	m.Update(StateMsg{Scope: "alice", State: fetch.StateThrottleBackoff})
	m.Update(NoticeMsg{Scope: "alice", Message: "slowing down"})
	require.Len(t, m.notices, 2)
	assert.Equal(t, "slowing down", m.notices[1].Message)
}

func TestModelNewScopeResetsCounters(t *testing.T) {
	m := newTestModel(nil)
	m.Update(StateMsg{Scope: "alice", State: fetch.StateFetching})
	m.Update(StepMsg{Scope: "alice", Step: fetch.Step{Processed: 10}})

	m.Update(StateMsg{Scope: "bob", State: fetch.StateFetching})
	assert.Equal(t, 0, m.pages)
	assert.Equal(t, fetch.Step{}, m.step)
}

func TestModelQuitCancelsOnce(t *testing.T) {
	calls := 0
	m := newTestModel(func() { calls++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Equal(t, 1, calls)
	assert.True(t, m.cancelling)
}

func TestModelFinishedQuits(t *testing.T) {
	m := newTestModel(nil)

	_, cmd := m.Update(FinishedMsg{Err: errors.New("full fetch declined")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.finished)
	assert.Contains(t, m.View(), "full fetch declined")
}

func TestModelNoticeLogIsBounded(t *testing.T) {
	m := newTestModel(nil)
	for i := 0; i < 20; i++ {
		m.addNotice("INFO", "line")
	}
	assert.Len(t, m.notices, m.maxNotices)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(nil)
	assert.Contains(t, m.View(), "press q to stop")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, m.View(), "toggle help")
}
