package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// ProgressDisplay is the plain terminal Reporter: a spinner line while a
// page is being collected and one summary line per finished collection.
// In plain mode the spinner is replaced by one line per event.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	spin       *spinner.Spinner
	spinning   bool
	plain      bool
	tracker    *StatusTracker
	notifier   *Notifier
	platform   string
	collection string
}

var _ Reporter = (*ProgressDisplay)(nil)

// NewProgressDisplay writes to out. notifier may be nil.
func NewProgressDisplay(out io.Writer, plain bool, notifier *Notifier) *ProgressDisplay {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	return &ProgressDisplay{
		out:      out,
		spin:     s,
		plain:    plain,
		tracker:  NewStatusTracker(),
		notifier: notifier,
	}
}

// Tracker exposes the counts of the current run
func (p *ProgressDisplay) Tracker() *StatusTracker { return p.tracker }

func (p *ProgressDisplay) CollectionStarted(platform, title, collection string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.platform, p.collection = platform, collection
	p.tracker.Reset(0)
	if p.plain {
		fmt.Fprintf(p.out, "%s %s → %s\n", Magenta("[COLLECTING]"), title, Cyan(platform+"/"+collection))
		return
	}
	p.spin.Suffix = " " + p.lineLocked("")
	p.spin.Start()
	p.spinning = true
}

func (p *ProgressDisplay) LinksAdded(collection string, added, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.Add(added, total)
	if p.plain {
		fmt.Fprintf(p.out, "%s %s +%d (%d total)\n", Green("[MERGED]"), collection, added, total)
		return
	}
	p.spin.Suffix = " " + p.lineLocked("")
}

func (p *ProgressDisplay) TimeRemaining(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.Countdown(seconds)
	if p.plain {
		return
	}
	p.spin.Suffix = " " + p.lineLocked(fmt.Sprintf("next scroll in %ds", seconds))
}

func (p *ProgressDisplay) CollectionFinished(collection string, total int, reason string) {
	p.mu.Lock()
	p.stopLocked()
	added := p.tracker.Added()
	fmt.Fprintf(p.out, "%s %s: %d new, %d total in %s (%s)\n",
		Green("✓"),
		Cyan(collection),
		added,
		total,
		FormatDuration(p.tracker.Elapsed()),
		Dim(reason),
	)
	p.mu.Unlock()

	if p.notifier != nil {
		p.notifier.CollectionDone(collection, added, total)
	}
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.println(Cyan("•"), fmt.Sprintf(format, args...))
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.println(Yellow("⚠"), fmt.Sprintf(format, args...))
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.println(Red("✗"), Red(fmt.Sprintf(format, args...)))
}

// println prints above the spinner line
func (p *ProgressDisplay) println(prefix, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resume := p.spinning
	p.stopLocked()
	fmt.Fprintf(p.out, "%s %s\n", prefix, msg)
	if resume {
		p.spin.Start()
		p.spinning = true
	}
}

func (p *ProgressDisplay) stopLocked() {
	if p.spinning {
		p.spin.Stop()
		p.spinning = false
	}
}

func (p *ProgressDisplay) lineLocked(extra string) string {
	parts := []string{
		Cyan(p.platform + "/" + p.collection),
		fmt.Sprintf("%d new", p.tracker.Added()),
		fmt.Sprintf("%d total", p.tracker.Total()),
		fmt.Sprintf("%.1f/min", p.tracker.Rate()),
	}
	if extra != "" {
		parts = append(parts, "["+p.tracker.CountdownBar(10)+"] "+extra)
	}
	return strings.Join(parts, " • ")
}
