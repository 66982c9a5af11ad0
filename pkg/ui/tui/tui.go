// Package tui is the live collection view: the run in progress, the
// stored collections with a fuzzy filter, and a short log.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"linkstash/pkg/store"
	"linkstash/pkg/ui"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ ui.Reporter = (*TUI)(nil)

// NewTUI creates a new TUI instance
func NewTUI(opts ...tea.ProgramOption) *TUI {
	model := NewModel()
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until the user quits or Stop is called
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// SetControls wires the pause and cancel keys to a collector
func (t *TUI) SetControls(onPause func(paused bool), onCancel func()) {
	t.model.SetControls(onPause, onCancel)
}

// WatchStore keeps the collections panel in sync with st
func (t *TUI) WatchStore(st *store.Store) {
	t.Send(EntriesMsg{Entries: Entries(st.GetAllCollections())})
	st.OnChange(func(snap store.Snapshot) {
		t.Send(EntriesMsg{Entries: Entries(snap)})
	})
}

func (t *TUI) CollectionStarted(platform, title, collection string) {
	t.Send(CollectionStartedMsg{Platform: platform, Title: title, Collection: collection})
}

func (t *TUI) LinksAdded(collection string, added, total int) {
	t.Send(LinksAddedMsg{Collection: collection, Added: added, Total: total})
}

func (t *TUI) TimeRemaining(seconds int) {
	t.Send(TimeRemainingMsg{Seconds: seconds})
}

func (t *TUI) CollectionFinished(collection string, total int, reason string) {
	t.Send(CollectionFinishedMsg{Collection: collection, Total: total, Reason: reason})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
