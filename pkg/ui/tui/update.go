package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// CollectionStartedMsg is sent when a run begins
type CollectionStartedMsg struct {
	Platform   string
	Title      string
	Collection string
}

// LinksAddedMsg is sent when links are merged into a collection
type LinksAddedMsg struct {
	Collection string
	Added      int
	Total      int
}

// TimeRemainingMsg carries the countdown before the next scroll
type TimeRemainingMsg struct {
	Seconds int
}

// CollectionFinishedMsg is sent when a run ends
type CollectionFinishedMsg struct {
	Collection string
	Total      int
	Reason     string
}

// EntriesMsg replaces the collections panel
type EntriesMsg struct {
	Entries []Entry
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.countdown.Width = max(10, msg.Width/4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case CollectionStartedMsg:
		m.StartRun(msg.Platform, msg.Title, msg.Collection)
		m.AddLogMessage("INFO", "Collecting "+msg.Platform+"/"+msg.Collection)
		return m, nil

	case LinksAddedMsg:
		m.AddLinks(msg.Collection, msg.Added, msg.Total)
		return m, nil

	case TimeRemainingMsg:
		m.SetRemaining(msg.Seconds)
		return m, nil

	case CollectionFinishedMsg:
		m.FinishRun(msg.Collection, msg.Total, msg.Reason)
		m.AddLogMessage("SUCCESS", "Finished "+msg.Collection+" ("+msg.Reason+")")
		return m, nil

	case EntriesMsg:
		m.SetEntries(msg.Entries)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "esc":
			m.mu.Lock()
			m.filtering = false
			m.filter.Reset()
			m.filter.Blur()
			m.mu.Unlock()
			return m, nil
		case "enter":
			m.mu.Lock()
			m.filtering = false
			m.filter.Blur()
			m.mu.Unlock()
			return m, nil
		}
		m.mu.Lock()
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.mu.Unlock()
		return m, cmd
	}

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.cancelRun()
		return m, tea.Quit

	case "/":
		m.mu.Lock()
		m.filtering = true
		cmd := m.filter.Focus()
		m.mu.Unlock()
		return m, cmd

	case "p", "P":
		m.togglePause()
		return m, nil

	case "c", "C":
		if m.cancelRun() {
			m.AddLogMessage("WARN", "Collection cancelled by user")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func (m *Model) togglePause() {
	m.mu.Lock()
	var paused bool
	switch m.run.State {
	case RunActive:
		m.run.State = RunPaused
		paused = true
	case RunPaused:
		m.run.State = RunActive
	default:
		m.mu.Unlock()
		return
	}
	onPause := m.onPause
	m.mu.Unlock()

	if paused {
		m.AddLogMessage("WARN", "Scrolling paused by user")
	} else {
		m.AddLogMessage("INFO", "Scrolling resumed by user")
	}
	if onPause != nil {
		go onPause(paused)
	}
}

// cancelRun reports whether there was a run to cancel
func (m *Model) cancelRun() bool {
	m.mu.RLock()
	active := m.run.State == RunActive || m.run.State == RunPaused
	onCancel := m.onCancel
	m.mu.RUnlock()
	if !active || onCancel == nil {
		return false
	}
	go onCancel()
	return true
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
