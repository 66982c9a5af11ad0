package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"linkstash/pkg/models"
	"linkstash/pkg/store"
)

// RunState is the state of the collection run on screen
type RunState int

const (
	RunIdle RunState = iota
	RunActive
	RunPaused
	RunFinished
)

// Run is the collection currently being filled
type Run struct {
	Platform   string
	Title      string
	Collection string
	Added      int
	Total      int
	Remaining  int
	Wait       int
	Reason     string
	State      RunState
	StartTime  time.Time
}

// Entry is one row of the collections panel
type Entry struct {
	Platform models.Platform
	Name     string
	Meta     models.CollectionMeta
	Count    int
}

// Label is the text the filter matches against
func (e Entry) Label() string {
	return string(e.Platform) + "/" + e.Name
}

// Entries flattens a snapshot in display order
func Entries(snap store.Snapshot) []Entry {
	var out []Entry
	for _, p := range snap.Platforms() {
		for _, name := range snap.Names(p) {
			out = append(out, Entry{
				Platform: p,
				Name:     name,
				Meta:     snap.Meta[p][name],
				Count:    len(snap.Collections[p][name]),
			})
		}
	}
	return out
}

// entryIndex implements fuzzy.Source over lowercase labels
type entryIndex struct {
	labels []string
}

func (idx entryIndex) String(i int) string { return idx.labels[i] }

func (idx entryIndex) Len() int { return len(idx.labels) }

// FilterEntries returns the entries matching query, best match first. An
// empty query keeps everything in order.
func FilterEntries(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}
	idx := entryIndex{labels: make([]string, len(entries))}
	for i, e := range entries {
		idx.labels[i] = strings.ToLower(e.Label())
	}
	matches := fuzzy.FindFrom(strings.ToLower(query), idx)
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner   spinner.Model
	countdown progress.Model
	filter    textinput.Model

	run       Run
	entries   []Entry
	filtering bool

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	onPause  func(paused bool)
	onCancel func()

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 30

	ti := textinput.New()
	ti.Placeholder = "filter collections"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	return &Model{
		spinner:        s,
		countdown:      p,
		filter:         ti,
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetControls wires the pause and cancel keys
func (m *Model) SetControls(onPause func(paused bool), onCancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPause = onPause
	m.onCancel = onCancel
}

// StartRun resets the run panel for a new collection
func (m *Model) StartRun(platform, title, collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = Run{
		Platform:   platform,
		Title:      title,
		Collection: collection,
		State:      RunActive,
		StartTime:  time.Now(),
	}
}

// AddLinks records merged links
func (m *Model) AddLinks(collection string, added, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if collection != m.run.Collection {
		return
	}
	m.run.Added += added
	m.run.Total = total
}

// SetRemaining records the countdown before the next scroll
func (m *Model) SetRemaining(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if remaining > m.run.Wait || m.run.Remaining == 0 {
		m.run.Wait = remaining
	}
	m.run.Remaining = remaining
}

// FinishRun marks the run as done
func (m *Model) FinishRun(collection string, total int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if collection != m.run.Collection {
		return
	}
	m.run.Total = total
	m.run.Reason = reason
	m.run.State = RunFinished
	m.run.Remaining = 0
}

// SetEntries replaces the collections panel
func (m *Model) SetEntries(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
}

// Visible returns the collections that pass the filter
func (m *Model) Visible() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return FilterEntries(m.entries, m.filter.Value())
}

// CurrentRun returns a copy of the run panel state
func (m *Model) CurrentRun() Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.run
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = warnOrange
	case "SUCCESS":
		color = okGreen
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// countdownPercent is how far the wait before the next scroll has run
func (r Run) countdownPercent() float64 {
	if r.Wait == 0 {
		return 1
	}
	return float64(r.Wait-r.Remaining) / float64(r.Wait)
}

// FormatRate formats merged links per minute
func FormatRate(added int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "0.0/min"
	}
	return fmt.Sprintf("%.1f/min", float64(added)/elapsed.Minutes())
}
