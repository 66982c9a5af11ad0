// Package scroll drives a page to the bottom on a timer until it stops
// growing.
//
// A Driver ticks once per interval. A tick either counts down the wait
// between scroll actions or scrolls, scans for new items and evaluates
// termination: the page height not growing for the quiet window, or the
// scanner reporting an exhausted Pinterest board.
package scroll

import (
	"context"
	"sync"
	"time"

	"linkstash/pkg/logger"
	"linkstash/pkg/ratelimit"
	"linkstash/pkg/scan"
)

type Status string

const (
	Idle      Status = "idle"
	Scrolling Status = "scrolling"
	Paused    Status = "paused"
)

const (
	ReasonNoNewContent   = "noNewContent"
	ReasonBoardExhausted = "boardExhausted"
	ReasonMaxDuration    = "maxDuration"
)

// Page is the part of a document the driver acts on
type Page interface {
	ScrollHeight(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error
}

// Scanner runs one incremental scan per scroll action
type Scanner interface {
	Step(ctx context.Context) scan.Result
}

// ScannerFunc adapts a function to Scanner
type ScannerFunc func(ctx context.Context) scan.Result

func (f ScannerFunc) Step(ctx context.Context) scan.Result { return f(ctx) }

type EventKind int

const (
	TimeUpdate EventKind = iota
	NewItems
	Complete
)

type Event struct {
	Kind          EventKind
	TimeRemaining int
	Result        scan.Result
	Reason        string
}

// Emitter receives driver events. Delivery is best-effort; an emitter must
// not block.
type Emitter func(Event)

type Options struct {
	// Wait is the number of ticks spent counting down between scroll actions
	Wait int
	// Quiet is how long the height may stay flat before the page is done
	Quiet    time.Duration
	Interval time.Duration
	// MaxPerSecond caps scroll actions per second; 0 means no cap
	MaxPerSecond int
	// MaxDuration ends a session regardless of growth; 0 means no limit
	MaxDuration time.Duration
	// Manual disables the background ticker; the caller drives Tick
	Manual bool
	Clock  ratelimit.Clock
	Logger logger.Logger
}

func DefaultOptions() Options {
	return Options{
		Wait:         1,
		Quiet:        2 * time.Second,
		Interval:     time.Second,
		MaxPerSecond: 2,
	}
}

// Session is a snapshot of the driver state
type Session struct {
	Status        Status
	LastHeight    int
	LastChange    time.Time
	Started       time.Time
	WaitRemaining int
	Ticks         int
	Scrolls       int
}

type Driver struct {
	page    Page
	scanner Scanner
	emit    Emitter
	opts    Options
	now     ratelimit.Clock
	limiter ratelimit.Limiter
	log     logger.Logger

	mu   sync.Mutex
	sess Session
	wait int
	stop chan struct{}

	// serializes ticks so a slow scan never overlaps the next one
	tickMu sync.Mutex
}

func New(page Page, scanner Scanner, emit Emitter, opts Options) *Driver {
	def := DefaultOptions()
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	if opts.Quiet <= 0 {
		opts.Quiet = def.Quiet
	}
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if emit == nil {
		emit = func(Event) {}
	}

	d := &Driver{
		page:    page,
		scanner: scanner,
		emit:    emit,
		opts:    opts,
		now:     opts.Clock,
		log:     opts.Logger.WithField("component", "scroll"),
		sess:    Session{Status: Idle},
		wait:    opts.Wait,
	}
	if opts.MaxPerSecond > 0 {
		d.limiter = ratelimit.PerSecond(opts.MaxPerSecond, opts.Clock)
	}
	return d
}

// Session returns a copy of the current state
func (d *Driver) Session() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess
}

func (d *Driver) Status() Status {
	return d.Session().Status
}

// Start begins a scroll session. It is a no-op while scrolling and
// resumes a paused session. wait overrides Options.Wait when >= 0.
func (d *Driver) Start(ctx context.Context, wait int) {
	d.mu.Lock()
	switch d.sess.Status {
	case Scrolling:
		d.mu.Unlock()
		return
	case Paused:
		d.mu.Unlock()
		d.Resume(ctx)
		return
	}
	d.mu.Unlock()

	height, err := d.page.ScrollHeight(ctx)
	if err != nil {
		d.log.WithError(err).Warn("reading page height")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess.Status != Idle {
		return
	}
	if wait >= 0 {
		d.wait = wait
	} else {
		d.wait = d.opts.Wait
	}
	now := d.now()
	d.sess = Session{
		Status:     Scrolling,
		LastHeight: height,
		LastChange: now,
		Started:    now,
	}
	if d.limiter != nil {
		d.limiter.Reset()
	}
	d.log.InfoWithFields("scrolling started", map[string]interface{}{
		"height": height,
		"wait":   d.wait,
	})
	d.startLoopLocked(ctx)
}

// Stop pauses a scrolling session, keeping its baseline
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess.Status != Scrolling {
		return
	}
	d.sess.Status = Paused
	d.haltLocked()
	d.log.Info("scrolling paused")
}

// Resume continues a paused session without resetting the height baseline
func (d *Driver) Resume(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess.Status != Paused {
		return
	}
	d.sess.Status = Scrolling
	d.log.Info("scrolling resumed")
	d.startLoopLocked(ctx)
}

// Cancel abandons any session without emitting a completion
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.haltLocked()
	if d.sess.Status != Idle {
		d.log.Info("scrolling cancelled")
	}
	d.sess = Session{Status: Idle}
}

func (d *Driver) startLoopLocked(ctx context.Context) {
	d.haltLocked()
	if d.opts.Manual {
		return
	}
	stop := make(chan struct{})
	d.stop = stop
	go d.loop(ctx, stop)
}

func (d *Driver) haltLocked() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

func (d *Driver) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick advances the session by one interval. It does nothing unless the
// driver is scrolling.
func (d *Driver) Tick(ctx context.Context) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	d.mu.Lock()
	if d.sess.Status != Scrolling {
		d.mu.Unlock()
		return
	}
	d.sess.Ticks++
	if d.sess.WaitRemaining > 0 {
		d.sess.WaitRemaining--
		remaining := d.sess.WaitRemaining
		d.mu.Unlock()
		d.emit(Event{Kind: TimeUpdate, TimeRemaining: remaining})
		return
	}
	if d.limiter != nil && !d.limiter.Allow() {
		d.mu.Unlock()
		d.log.Debug("scroll rate limited")
		return
	}
	d.sess.Scrolls++
	d.mu.Unlock()

	if err := d.page.ScrollToBottom(ctx); err != nil {
		d.log.WithError(err).Warn("scroll to bottom failed")
	}
	result := d.scanner.Step(ctx)
	if len(result.Items) > 0 {
		d.emit(Event{Kind: NewItems, Result: result})
	}
	height, herr := d.page.ScrollHeight(ctx)

	d.mu.Lock()
	if d.sess.Status != Scrolling {
		d.mu.Unlock()
		return
	}
	now := d.now()

	if result.BoardExhausted {
		d.finishLocked()
		d.mu.Unlock()
		d.log.Info("board exhausted, stopping")
		d.emit(Event{Kind: Complete, Reason: ReasonBoardExhausted})
		return
	}

	switch {
	case herr == nil && height > d.sess.LastHeight:
		d.sess.LastHeight = height
		d.sess.LastChange = now
		d.log.DebugWithFields("new content loaded", map[string]interface{}{"height": height})
	case now.Sub(d.sess.LastChange) >= d.opts.Quiet:
		d.finishLocked()
		d.mu.Unlock()
		d.log.InfoWithFields("no new content, stopping", map[string]interface{}{"quiet": d.opts.Quiet.String()})
		d.emit(Event{Kind: Complete, Reason: ReasonNoNewContent})
		return
	}

	if d.opts.MaxDuration > 0 && now.Sub(d.sess.Started) >= d.opts.MaxDuration {
		d.finishLocked()
		d.mu.Unlock()
		d.log.Info("maximum duration reached, stopping")
		d.emit(Event{Kind: Complete, Reason: ReasonMaxDuration})
		return
	}

	d.sess.WaitRemaining = d.wait
	remaining := d.wait
	d.mu.Unlock()
	d.emit(Event{Kind: TimeUpdate, TimeRemaining: remaining})
}

func (d *Driver) finishLocked() {
	d.haltLocked()
	d.sess.Status = Idle
	d.sess.WaitRemaining = 0
}
