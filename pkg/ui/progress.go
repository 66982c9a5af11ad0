package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps the counts of one collection run
type StatusTracker struct {
	mu        sync.Mutex
	added     int
	total     int
	remaining int
	wait      int
	startTime time.Time
	now       func() time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return newStatusTracker(time.Now)
}

func newStatusTracker(now func() time.Time) *StatusTracker {
	return &StatusTracker{startTime: now(), now: now}
}

// Reset starts a new run with total bookmarks already stored
func (st *StatusTracker) Reset(total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.added, st.total, st.remaining, st.wait = 0, total, 0, 0
	st.startTime = st.now()
}

// Add records newly merged links
func (st *StatusTracker) Add(added, total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.added += added
	st.total = total
}

// Countdown records the ticks left before the next scroll. The first
// value of a countdown sets the bar's width.
func (st *StatusTracker) Countdown(remaining int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if remaining > st.wait || st.remaining == 0 {
		st.wait = remaining
	}
	st.remaining = remaining
}

// Added returns the number of links merged this run
func (st *StatusTracker) Added() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.added
}

// Total returns the collection size
func (st *StatusTracker) Total() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.total
}

// Elapsed returns the time since the run started
func (st *StatusTracker) Elapsed() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.now().Sub(st.startTime)
}

// Rate returns merged links per minute
func (st *StatusTracker) Rate() float64 {
	elapsed := st.Elapsed().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Added()) / elapsed
}

// CountdownBar renders the wait before the next scroll
func (st *StatusTracker) CountdownBar(width int) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.wait == 0 {
		return strings.Repeat(ProgressBar, width)
	}
	filled := width * (st.wait - st.remaining) / st.wait
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
