package ui

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, title+": "+message)
	return nil
}

func TestProgressDisplayPlain(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{}
	p := NewProgressDisplay(&buf, true, NewNotifierWithSender(sender))

	p.CollectionStarted("instagram", "Saved", "alice")
	p.LinksAdded("alice", 3, 3)
	p.TimeRemaining(1)
	p.LinksAdded("alice", 2, 5)
	p.LogWarning("slow page %d", 1)
	p.CollectionFinished("alice", 5, "noNewContent")

	out := buf.String()
	assert.Contains(t, out, "[COLLECTING]")
	assert.Contains(t, out, "alice +3 (3 total)")
	assert.Contains(t, out, "alice +2 (5 total)")
	assert.Contains(t, out, "slow page 1")
	assert.Contains(t, out, "5 new, 5 total")
	assert.Equal(t, 5, p.Tracker().Added())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "linkstash: alice: 5 new, 5 total", sender.sent[0])
}

func TestProgressDisplayImplementsReporter(t *testing.T) {
	var r Reporter = NewProgressDisplay(&bytes.Buffer{}, false, nil)
	assert.NotPanics(t, func() {
		r.CollectionStarted("tiktok", "t", "bob_liked")
		r.LogInfo("hello")
		r.CollectionFinished("bob_liked", 0, "cancelled")
	})
}

func TestStatusTracker(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newStatusTracker(func() time.Time { return now })

	st.Reset(10)
	st.Add(4, 14)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 4, st.Added())
	assert.Equal(t, 14, st.Total())
	assert.InDelta(t, 2.0, st.Rate(), 0.001)

	st.Countdown(4)
	assert.Equal(t, "░░░░", st.CountdownBar(4))
	st.Countdown(2)
	assert.Equal(t, "██░░", st.CountdownBar(4))
	st.Countdown(0)
	assert.Equal(t, "████", st.CountdownBar(4))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m5s", FormatDuration(185*time.Second))
	assert.Equal(t, "2h1m", FormatDuration(121*time.Minute))
}

func TestPrintHelpersHonourQuietMode(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuietMode(false)
	})

	SetQuietMode(true)
	PrintLogo()
	PrintInfo("Backend", "bolt")
	assert.Empty(t, buf.String())

	PrintError("failed", "boom")
	assert.Contains(t, buf.String(), "failed: boom")

	SetQuietMode(false)
	PrintInfo("Backend", "bolt")
	assert.Contains(t, buf.String(), "Backend")
}
