package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRunPanel(half),
		m.renderLogsPanel(half),
	)
	main := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.renderCollectionsPanel(half))

	sections := []string{logoStyle.Render("linkstash"), main}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("/ filter • p pause • c cancel • q quit • ? help"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderRunPanel renders the active collection
func (m *Model) renderRunPanel(width int) string {
	run := m.CurrentRun()
	title := titleStyle.Render(" COLLECTING ")

	if run.State == RunIdle {
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("Waiting for a page...")),
		)
	}

	elapsed := time.Since(run.StartTime)
	var status string
	switch run.State {
	case RunActive:
		status = m.spinner.View() + " scrolling"
	case RunPaused:
		status = warningStyle.Render("⏸  PAUSED")
	case RunFinished:
		status = successStyle.Render("✓ " + run.Reason)
	}

	lines := []string{
		title,
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Page:"), statsValueStyle.Render(run.Title)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Collection:"),
			PlatformStyle(run.Platform).Render(run.Platform)+"/"+statsValueStyle.Render(run.Collection)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("New links:"), statsValueStyle.Render(fmt.Sprintf("%d", run.Added))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", run.Total))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Rate:"), statsValueStyle.Render(FormatRate(run.Added, elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(elapsed))),
		status,
	}
	if run.State == RunActive {
		lines = append(lines, m.countdown.ViewAs(run.countdownPercent()))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderCollectionsPanel renders the stored collections, filtered
func (m *Model) renderCollectionsPanel(width int) string {
	title := titleStyle.Render(" COLLECTIONS ")
	visible := m.Visible()

	m.mu.RLock()
	filterLine := ""
	if m.filtering || m.filter.Value() != "" {
		filterLine = m.filter.View()
	}
	total := len(m.entries)
	m.mu.RUnlock()

	var rows []string
	if filterLine != "" {
		rows = append(rows, filterLine)
	}
	if len(visible) == 0 {
		rows = append(rows, dimStyle.Render("No collections"))
	}

	limit := m.height - 12
	if limit < 5 {
		limit = 5
	}
	for i, e := range visible {
		if i == limit {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("  ... and %d more", len(visible)-limit)))
			break
		}
		rows = append(rows, fmt.Sprintf("%s %s %s",
			PlatformStyle(string(e.Platform)).Render(fmt.Sprintf("%-9s", e.Platform)),
			truncate(e.Name, width-22),
			dimStyle.Render(fmt.Sprintf("%d", e.Count)),
		))
	}
	rows = append(rows, dimStyle.Render(fmt.Sprintf("%d of %d", len(visible), total)))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 8
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, dimStyle.Render(truncate(log.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No logs yet...")
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    /        - Filter collections (enter keeps, esc clears)
    p/P      - Pause/Resume scrolling
    c/C      - Cancel the current collection
    q/Q      - Quit
    ?        - Toggle this help
    ctrl+l   - Clear the log
`
	return panelStyle.Width(m.width - 2).Render(help)
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
