package scroll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/pkg/dom/htmldom"
	"linkstash/pkg/models"
	"linkstash/pkg/scan"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds(k EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// feed is an Instagram page that appends one post per scroll until
// growFor scrolls have happened.
func feed(t *testing.T, growFor int) *htmldom.Document {
	t.Helper()
	doc := htmldom.MustParse("https://www.instagram.com/alice/", `<html><body><a href="/p/first/">0</a></body></html>`)
	doc.OnScroll(func(d *htmldom.Document, n int) {
		if n <= growFor {
			require.NoError(t, d.AppendBody(fmt.Sprintf(`<a href="/p/post%d/">%d</a>`, n, n)))
		}
	})
	return doc
}

func instagramScanner(doc *htmldom.Document) Scanner {
	sess := scan.NewSession(nil)
	return ScannerFunc(func(ctx context.Context) scan.Result {
		return scan.Instagram(doc, sess)
	})
}

// countingPage records the time of every scroll action
type countingPage struct {
	Page
	clock *fakeClock
	mu    sync.Mutex
	at    []time.Time
}

func (p *countingPage) ScrollToBottom(ctx context.Context) error {
	p.mu.Lock()
	p.at = append(p.at, p.clock.Now())
	p.mu.Unlock()
	return p.Page.ScrollToBottom(ctx)
}

func TestStopsAfterQuietWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 3)
	page := &countingPage{Page: doc, clock: clock}
	rec := &recorder{}

	d := New(page, instagramScanner(doc), rec.emit, Options{
		Wait:         0,
		Quiet:        2 * time.Second,
		Interval:     time.Second,
		MaxPerSecond: 2,
		Manual:       true,
		Clock:        clock.Now,
	})
	d.Start(ctx, -1)
	require.Equal(t, Scrolling, d.Status())

	for tick := 1; tick <= 4; tick++ {
		clock.Advance(time.Second)
		d.Tick(ctx)
		assert.Equal(t, Scrolling, d.Status(), "tick %d", tick)
	}
	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, Idle, d.Status())

	complete := rec.kinds(Complete)
	require.Len(t, complete, 1)
	assert.Equal(t, ReasonNoNewContent, complete[0].Reason)

	// one from the first scan, one per growing scroll
	var urls []string
	for _, e := range rec.kinds(NewItems) {
		urls = append(urls, e.Result.URLs()...)
	}
	assert.Len(t, urls, 4)

	perSecond := map[time.Time]int{}
	for _, at := range page.at {
		perSecond[at.Truncate(time.Second)]++
	}
	for sec, n := range perSecond {
		assert.LessOrEqual(t, n, 2, "scrolls in second %s", sec)
	}

	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Len(t, page.at, 5, "idle driver does not scroll")
}

func TestCountdownBetweenScrolls(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 100)
	rec := &recorder{}
	d := New(doc, instagramScanner(doc), rec.emit, Options{Wait: 2, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		d.Tick(ctx)
	}

	var remaining []int
	for _, e := range rec.kinds(TimeUpdate) {
		remaining = append(remaining, e.TimeRemaining)
	}
	assert.Equal(t, []int{2, 1, 0, 2}, remaining)
	assert.Equal(t, 2, doc.Scrolls())
	assert.Equal(t, 4, d.Session().Ticks)
}

func TestStartWaitOverride(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 100)
	d := New(doc, instagramScanner(doc), nil, Options{Wait: 5, Manual: true, Clock: clock.Now})

	d.Start(ctx, 0)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		d.Tick(ctx)
	}
	assert.Equal(t, 3, doc.Scrolls())
}

func TestPauseResumeKeepsBaseline(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 1)
	rec := &recorder{}
	d := New(doc, instagramScanner(doc), rec.emit, Options{Wait: 0, Quiet: 2 * time.Second, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	clock.Advance(time.Second)
	d.Tick(ctx)
	baseline := d.Session()

	d.Stop()
	assert.Equal(t, Paused, d.Status())
	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, 1, doc.Scrolls(), "paused driver does not scroll")

	d.Start(ctx, -1)
	assert.Equal(t, Scrolling, d.Status(), "start resumes a paused session")
	after := d.Session()
	assert.Equal(t, baseline.LastHeight, after.LastHeight)
	assert.Equal(t, baseline.LastChange, after.LastChange)

	// the pause counted toward the quiet window
	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, Idle, d.Status())
	assert.Len(t, rec.kinds(Complete), 1)
}

func TestStartWhileScrollingIsNoop(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 100)
	d := New(doc, instagramScanner(doc), nil, Options{Wait: 0, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	clock.Advance(time.Second)
	d.Tick(ctx)
	before := d.Session()

	clock.Advance(time.Second)
	d.Start(ctx, -1)
	assert.Equal(t, before, d.Session())
}

func TestCancelEmitsNothing(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 0)
	rec := &recorder{}
	d := New(doc, instagramScanner(doc), rec.emit, Options{Wait: 0, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	clock.Advance(time.Second)
	d.Tick(ctx)
	d.Cancel()

	assert.Equal(t, Session{Status: Idle}, d.Session())
	clock.Advance(10 * time.Second)
	d.Tick(ctx)
	assert.Empty(t, rec.kinds(Complete))
}

func TestBoardExhaustedStopsEarly(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := htmldom.MustParse("https://www.pinterest.com/alice/cats/", `<html><body>
		<a href="/pin/1/">1</a>
		<section data-test-id="more-ideas-feed"><a href="/pin/2/">2</a></section>
	</body></html>`)
	doc.OnScroll(func(d *htmldom.Document, n int) {
		require.NoError(t, d.AppendBody(fmt.Sprintf(`<div>%d</div>`, n)))
	})
	sess := scan.NewSession(nil)
	scanner := ScannerFunc(func(ctx context.Context) scan.Result {
		return scan.Pinterest(doc, sess, models.PinterestBoard)
	})
	rec := &recorder{}
	d := New(doc, scanner, rec.emit, Options{Wait: 0, Quiet: time.Minute, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, Scrolling, d.Status())

	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, Idle, d.Status())
	complete := rec.kinds(Complete)
	require.Len(t, complete, 1)
	assert.Equal(t, ReasonBoardExhausted, complete[0].Reason)
}

func TestRateLimitSkipsScroll(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 100)
	d := New(doc, instagramScanner(doc), nil, Options{Wait: 0, MaxPerSecond: 1, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	d.Tick(ctx)
	d.Tick(ctx)
	assert.Equal(t, 1, doc.Scrolls())

	clock.Advance(time.Second)
	d.Tick(ctx)
	assert.Equal(t, 2, doc.Scrolls())
}

func TestMaxDuration(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	doc := feed(t, 100)
	rec := &recorder{}
	d := New(doc, instagramScanner(doc), rec.emit, Options{Wait: 0, MaxDuration: 3 * time.Second, Manual: true, Clock: clock.Now})

	d.Start(ctx, -1)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		d.Tick(ctx)
	}
	complete := rec.kinds(Complete)
	require.Len(t, complete, 1)
	assert.Equal(t, ReasonMaxDuration, complete[0].Reason)
}

func TestBackgroundLoopCompletes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := feed(t, 0)
	done := make(chan Event, 1)
	d := New(doc, instagramScanner(doc), func(e Event) {
		if e.Kind == Complete {
			select {
			case done <- e:
			default:
			}
		}
	}, Options{Wait: 0, Quiet: 30 * time.Millisecond, Interval: 10 * time.Millisecond})

	d.Start(ctx, -1)
	select {
	case e := <-done:
		assert.Equal(t, ReasonNoNewContent, e.Reason)
	case <-ctx.Done():
		t.Fatal("driver never completed")
	}
	assert.Equal(t, Idle, d.Status())
}
