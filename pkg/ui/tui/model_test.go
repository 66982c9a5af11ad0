package tui

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/pkg/models"
	"linkstash/pkg/store"
)

func sampleEntries(t *testing.T) []Entry {
	t.Helper()
	st := store.New(nil, store.Options{})
	require.NoError(t, st.Load(context.Background()))
	st.AddBookmarks(models.PlatformInstagram, "alice", []string{"https://www.instagram.com/p/1/", "https://www.instagram.com/p/2/"})
	st.AddBookmarks(models.PlatformTikTok, "bob_favorites", []string{"https://www.tiktok.com/@x/video/1"})
	st.AddBookmarks(models.PlatformInstagram, "recipes", []string{"https://www.instagram.com/p/3/"})
	return Entries(st.GetAllCollections())
}

func TestEntriesFollowStoreOrder(t *testing.T) {
	entries := sampleEntries(t)
	require.Len(t, entries, 3)
	assert.Equal(t, "instagram/recipes", entries[0].Label())
	assert.Equal(t, "instagram/alice", entries[1].Label())
	assert.Equal(t, 2, entries[1].Count)
	assert.Equal(t, "tiktok/bob_favorites", entries[2].Label())
}

func TestFilterEntries(t *testing.T) {
	entries := sampleEntries(t)

	assert.Len(t, FilterEntries(entries, ""), 3)
	assert.Len(t, FilterEntries(entries, "  "), 3)

	got := FilterEntries(entries, "BobFav")
	require.Len(t, got, 1)
	assert.Equal(t, "bob_favorites", got[0].Name)

	got = FilterEntries(entries, "insta")
	assert.Len(t, got, 2)

	assert.Empty(t, FilterEntries(entries, "zzz"))
}

func TestModelRunLifecycle(t *testing.T) {
	m := NewModel()

	m.Update(CollectionStartedMsg{Platform: "instagram", Title: "Saved", Collection: "alice"})
	m.Update(LinksAddedMsg{Collection: "alice", Added: 3, Total: 3})
	m.Update(LinksAddedMsg{Collection: "other", Added: 9, Total: 9})
	m.Update(TimeRemainingMsg{Seconds: 2})

	run := m.CurrentRun()
	assert.Equal(t, RunActive, run.State)
	assert.Equal(t, 3, run.Added)
	assert.Equal(t, 2, run.Remaining)
	assert.InDelta(t, 0.0, run.countdownPercent(), 0.001)

	m.Update(TimeRemainingMsg{Seconds: 1})
	assert.InDelta(t, 0.5, m.CurrentRun().countdownPercent(), 0.001)

	m.Update(CollectionFinishedMsg{Collection: "alice", Total: 4, Reason: "noNewContent"})
	run = m.CurrentRun()
	assert.Equal(t, RunFinished, run.State)
	assert.Equal(t, 4, run.Total)
	assert.Len(t, m.logMessages, 2)
}

func TestModelPauseAndCancelKeys(t *testing.T) {
	m := NewModel()
	paused := make(chan bool, 2)
	var cancelled atomic.Int32
	m.SetControls(func(p bool) { paused <- p }, func() { cancelled.Add(1) })

	// nothing to pause before a run starts
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, RunIdle, m.CurrentRun().State)

	m.Update(CollectionStartedMsg{Platform: "tiktok", Collection: "bob_liked"})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, RunPaused, m.CurrentRun().State)
	assert.True(t, <-paused)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Equal(t, RunActive, m.CurrentRun().State)
	assert.False(t, <-paused)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, time.Millisecond)
}

func TestModelFilterMode(t *testing.T) {
	m := NewModel()
	m.Update(EntriesMsg{Entries: sampleEntries(t)})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	assert.True(t, m.filtering)
	for _, r := range "rec" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "recipes", m.Visible()[0].Name)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filtering)
	assert.Len(t, m.Visible(), 3)
}

func TestViewRenders(t *testing.T) {
	m := NewModel()
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(EntriesMsg{Entries: sampleEntries(t)})
	m.Update(CollectionStartedMsg{Platform: "instagram", Title: "Saved", Collection: "alice"})
	m.Update(LogMsg{Level: "WARN", Message: "slow page"})

	view := m.View()
	assert.True(t, strings.Contains(view, "alice"))
	assert.True(t, strings.Contains(view, "bob_favorites"))
	assert.True(t, strings.Contains(view, "slow page"))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0.0/min", FormatRate(5, 0))
	assert.Equal(t, "2.5/min", FormatRate(5, 2*time.Minute))
}
