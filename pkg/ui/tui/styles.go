package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent     = lipgloss.Color("#5FD7FF")
	accent2    = lipgloss.Color("#AF87FF")
	okGreen    = lipgloss.Color("#87D75F")
	warnOrange = lipgloss.Color("#FFAF5F")
	alertRed   = lipgloss.Color("#FF5F5F")
	valueGold  = lipgloss.Color("#FFD75F")
	panelBg    = lipgloss.Color("#1C1C28")
	dimWhite   = lipgloss.Color("#B0B0B0")

	logoStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0, 0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent2).
			Background(panelBg).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(valueGold)

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnOrange).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	platformStyles = map[string]lipgloss.Style{
		"instagram": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5FAF")),
		"tiktok":    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FFFD7")),
		"youtube":   lipgloss.NewStyle().Foreground(alertRed),
		"pinterest": lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F")),
	}

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 0, 0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accent2).
			Foreground(panelBg).
			Bold(true).
			Padding(0, 1)
)

// PlatformStyle returns the colour used for a platform's name
func PlatformStyle(platform string) lipgloss.Style {
	if s, ok := platformStyles[platform]; ok {
		return s
	}
	return dimStyle
}
