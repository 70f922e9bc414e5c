package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"imgurstats/pkg/fetch"
)

func (m *Model) View() string {
	var sections []string

	header := titleStyle.Render("imgurstats · " + m.title)
	if !m.finished && m.state != fetch.StateCancelled {
		header = m.spinner.View() + " " + header
	}
	sections = append(sections, header, panelStyle.Render(m.renderStats()))

	if len(m.notices) > 0 {
		sections = append(sections, m.renderNotices())
	}

	if m.showHelp {
		sections = append(sections, helpStyle.Render("q / esc / ctrl+c  stop after the current page, nothing is saved\n?                 toggle help"))
	} else {
		sections = append(sections, helpStyle.Render("press q to stop, ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderStats() string {
	row := func(label, value string) string {
		return statsLabelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value
	}

	items := humanize.Comma(int64(m.step.Processed))
	if m.step.Total > 0 {
		items += " of " + humanize.Comma(int64(m.step.Total))
	}

	lines := []string{
		row("Account", statsValueStyle.Render(displayOr(m.scope, "…"))),
		row("State", stateStyle(string(m.state)).Render(string(m.state))),
		row("Pages", statsValueStyle.Render(humanize.Comma(int64(m.pages)))),
		row("Items", statsValueStyle.Render(items)),
		row("Elapsed", statsValueStyle.Render(m.Elapsed().Round(time.Second).String())),
		"",
		m.bar.ViewAs(m.step.Fraction()),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderNotices() string {
	lines := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		style := lipgloss.NewStyle().Foreground(n.Color)
		lines = append(lines, helpStyle.Render(n.Time.Format("15:04:05"))+" "+style.Render(n.Message))
	}
	return strings.Join(lines, "\n")
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
