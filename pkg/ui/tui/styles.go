package tui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	errorRed    = lipgloss.Color("#FF0000")
	dimWhite    = lipgloss.Color("#B0B0B0")

	titleStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 2)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)
)

// stateStyle colors a session state label.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "DONE":
		return successStyle
	case "CANCELLED":
		return errorStyle
	case "THROTTLE_BACKOFF", "EXHAUSTED":
		return warningStyle
	default:
		return statsValueStyle
	}
}
