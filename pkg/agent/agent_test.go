package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/pkg/dom/htmldom"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
	"linkstash/pkg/models"
	"linkstash/pkg/scroll"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

// attach builds an agent on doc whose events land in the returned pipe
func attach(t *testing.T, doc *htmldom.Document, clock *fakeClock) (*Agent, *messenger.Pipe) {
	t.Helper()
	pipe := messenger.NewPipe(nil, 64)
	a := New(doc, pipe, Options{
		Scroll: scroll.Options{
			Wait:     0,
			Quiet:    2 * time.Second,
			Interval: time.Second,
			Manual:   true,
			Clock:    clock.Now,
		},
		Logger: logger.NewTestLogger(),
	})
	pipe.SetHandler(a)
	t.Cleanup(func() { _ = pipe.Close() })
	return a, pipe
}

func drain(p *messenger.Pipe) []messenger.Event {
	var out []messenger.Event
	for {
		select {
		case e := <-p.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestPingAndPageInfo(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.instagram.com/alice/saved/",
		`<html><head><title>Saved</title></head><body></body></html>`)
	_, pipe := attach(t, doc, newClock())

	require.NoError(t, messenger.Preflight(ctx, pipe, time.Second))

	info, err := pipe.Send(ctx, messenger.PageInfo{})
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/alice/saved/", info.URL)
	assert.Equal(t, "Saved", info.Title)
	assert.Equal(t, string(scroll.Idle), info.Status)
}

func TestInstagramScrollSession(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	doc := htmldom.MustParse("https://www.instagram.com/alice/", `<html><body><a href="/p/first/">0</a></body></html>`)
	doc.OnScroll(func(d *htmldom.Document, n int) {
		if n <= 2 {
			require.NoError(t, d.AppendBody(fmt.Sprintf(`<a href="/reel/r%d/?igsh=x">%d</a>`, n, n)))
		}
	})
	a, pipe := attach(t, doc, clock)

	reply, err := pipe.Send(ctx, messenger.StartScrolling{})
	require.NoError(t, err)
	assert.Equal(t, "Scrolling started", reply.Status)
	assert.Equal(t, scroll.Scrolling, a.Driver().Status())

	for i := 0; i < 10 && a.Driver().Status() == scroll.Scrolling; i++ {
		clock.Advance(time.Second)
		a.Driver().Tick(ctx)
	}
	assert.Equal(t, scroll.Idle, a.Driver().Status())

	var links []string
	var complete []messenger.ScrollComplete
	for _, e := range drain(pipe) {
		switch ev := e.(type) {
		case messenger.InstaNewLinks:
			links = append(links, ev.Links...)
		case messenger.ScrollComplete:
			complete = append(complete, ev)
		}
	}
	assert.Equal(t, []string{
		"https://www.instagram.com/p/first/",
		"https://www.instagram.com/reel/r1/",
		"https://www.instagram.com/reel/r2/",
	}, links)
	require.Len(t, complete, 1)
	assert.Equal(t, scroll.ReasonNoNewContent, complete[0].Reason)

	// final collection includes what the session saw, with media kinds
	collected, err := pipe.Send(ctx, messenger.CollectInstagramPostLinks{})
	require.NoError(t, err)
	assert.Equal(t, links, collected.Links)
	require.Len(t, collected.Items, 3)
	assert.Equal(t, models.MediaPicture, collected.Items[0].MediaKind)
	assert.Equal(t, models.MediaVideo, collected.Items[1].MediaKind)
}

func TestCollectInstagramIncludesFinalPass(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.instagram.com/alice/", `<html><body>
		<a href="/p/a/">a</a><a href="/p/b/">b</a>
	</body></html>`)
	a, pipe := attach(t, doc, newClock())

	reply, err := pipe.Send(ctx, messenger.CollectInstagramPostLinks{})
	require.NoError(t, err)
	assert.Len(t, reply.Links, 2)
	// the final pass does not mark anything
	assert.Zero(t, a.Session().Len("instagram"))
}

func TestStopResumeCancel(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.instagram.com/alice/", `<html><body></body></html>`)
	a, pipe := attach(t, doc, newClock())

	_, err := pipe.Send(ctx, messenger.StartScrolling{})
	require.NoError(t, err)

	reply, err := pipe.Send(ctx, messenger.StopScrolling{})
	require.NoError(t, err)
	assert.Equal(t, "Scrolling stopped", reply.Status)
	assert.Equal(t, scroll.Paused, a.Driver().Status())

	_, err = pipe.Send(ctx, messenger.ResumeScrolling{})
	require.NoError(t, err)
	assert.Equal(t, scroll.Scrolling, a.Driver().Status())

	_, err = pipe.Send(ctx, messenger.CancelScrolling{})
	require.NoError(t, err)
	assert.Equal(t, scroll.Idle, a.Driver().Status())
	for _, e := range drain(pipe) {
		assert.NotEqual(t, messenger.TypeScrollComplete, e.Type())
	}
}

func TestStartScrollingWaitOverride(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	doc := htmldom.MustParse("https://www.instagram.com/alice/", `<html><body></body></html>`)
	doc.SetHeight(100)
	a, pipe := attach(t, doc, clock)

	wait := 3
	_, err := pipe.Send(ctx, messenger.StartScrolling{WaitTime: &wait})
	require.NoError(t, err)

	clock.Advance(time.Second)
	a.Driver().Tick(ctx)
	var remaining []int
	for _, e := range drain(pipe) {
		if u, ok := e.(messenger.ScrollTimeUpdate); ok {
			remaining = append(remaining, u.TimeRemaining)
		}
	}
	assert.Equal(t, []int{3}, remaining)
}

func TestTikTokCommands(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.tiktok.com/@alice", `<html><body>
		<p role="tab" aria-selected="true" class="PFavorite">Favorites</p>
		<div data-e2e="favorites-item"><a href="https://www.tiktok.com/@bob/video/111">v</a></div>
		<div data-e2e="favorites-item"><a href="https://www.tiktok.com/@bob/photo/222">p</a></div>
	</body></html>`)
	_, pipe := attach(t, doc, newClock())

	section, err := pipe.Send(ctx, messenger.DetectTikTokSection{})
	require.NoError(t, err)
	assert.Equal(t, "alice", section.Username)
	assert.Equal(t, string(models.SectionFavorites), section.Section)

	first, err := pipe.Send(ctx, messenger.ScanTikTokFavoritesOnce{})
	require.NoError(t, err)
	assert.Len(t, first.Links, 2)

	again, err := pipe.Send(ctx, messenger.ScanTikTokFavoritesOnce{})
	require.NoError(t, err)
	assert.Empty(t, again.Links)

	all, err := pipe.Send(ctx, messenger.CollectTikTokFavorites{})
	require.NoError(t, err)
	assert.Equal(t, first.Links, all.Links)

	reset, err := pipe.Send(ctx, messenger.ResetTikTokFavoritesState{})
	require.NoError(t, err)
	assert.Equal(t, "cleared", reset.Status)

	fresh, err := pipe.Send(ctx, messenger.ScanTikTokFavoritesOnce{})
	require.NoError(t, err)
	assert.Len(t, fresh.Links, 2)

	videos, err := pipe.Send(ctx, messenger.CollectAllVideoLinks{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.tiktok.com/@bob/video/111"}, videos.Links)
}

func TestSelectionMode(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.tiktok.com/@alice", `<html><body></body></html>`)
	_, pipe := attach(t, doc, newClock())

	ignored, err := pipe.Send(ctx, messenger.ToggleSelection{URL: "https://www.tiktok.com/@a/video/1"})
	require.NoError(t, err)
	assert.Equal(t, "ignored", ignored.Status)

	_, err = pipe.Send(ctx, messenger.StartSelectionMode{})
	require.NoError(t, err)
	on, err := pipe.Send(ctx, messenger.ToggleSelection{URL: "https://www.tiktok.com/@a/video/1"})
	require.NoError(t, err)
	assert.True(t, on.Selected)

	done, err := pipe.Send(ctx, messenger.ValidateSelection{})
	require.NoError(t, err)
	assert.Equal(t, "Selection validated", done.Status)
	assert.Equal(t, []string{"https://www.tiktok.com/@a/video/1"}, done.Links)

	events := drain(pipe)
	require.Len(t, events, 1)
	assert.Equal(t, messenger.SelectionValidated{Links: done.Links}, events[0])
}

func TestPinterestModeAndBoardExhaustion(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	doc := htmldom.MustParse("https://www.pinterest.com/alice/cats/", `<html><body>
		<div><a data-ls-top="100" href="/pin/1/">b</a></div>
		<h2 data-ls-top="500">More ideas</h2>
		<div><a data-ls-top="600" href="/pin/9/">m</a></div>
	</body></html>`)
	a, pipe := attach(t, doc, clock)

	section, err := pipe.Send(ctx, messenger.PinterestGetSection{})
	require.NoError(t, err)
	assert.Empty(t, section.Section, "sections only exist on the home feed")

	_, err = pipe.Send(ctx, messenger.StartScrolling{})
	require.NoError(t, err)
	for i := 0; i < 5 && a.Driver().Status() == scroll.Scrolling; i++ {
		clock.Advance(time.Second)
		a.Driver().Tick(ctx)
	}

	var board []messenger.PinterestNewLinks
	var reasons []string
	for _, e := range drain(pipe) {
		switch ev := e.(type) {
		case messenger.PinterestNewLinks:
			board = append(board, ev)
		case messenger.ScrollComplete:
			reasons = append(reasons, ev.Reason)
		}
	}
	require.Len(t, board, 1)
	assert.Equal(t, []string{"https://www.pinterest.com/pin/1/"}, board[0].Links)
	assert.Equal(t, models.PinterestBoard, board[0].Mode)
	assert.Equal(t, []string{scroll.ReasonBoardExhausted}, reasons)

	mode, err := pipe.Send(ctx, messenger.SetPinterestMode{Mode: models.PinterestMoreIdeas})
	require.NoError(t, err)
	assert.Equal(t, models.PinterestMoreIdeas, mode.Mode)

	_, err = pipe.Send(ctx, messenger.StartScrolling{})
	require.NoError(t, err)
	clock.Advance(time.Second)
	a.Driver().Tick(ctx)
	var ideas []string
	for _, e := range drain(pipe) {
		if ev, ok := e.(messenger.PinterestNewLinks); ok {
			assert.Equal(t, models.PinterestMoreIdeas, ev.Mode)
			ideas = append(ideas, ev.Links...)
		}
	}
	assert.Equal(t, []string{"https://www.pinterest.com/pin/9/"}, ideas)

	_, err = pipe.Send(ctx, messenger.ResetPinterestState{})
	require.NoError(t, err)
	assert.Zero(t, a.Session().Len("pinterest"))
	assert.Zero(t, a.Session().Len("pinterest:moreIdeas"))
}

const youtubeChannel = `<html><body>
	<ytd-watch-metadata><ytd-video-owner-renderer><ytd-channel-name>
		<a href="/@chan">Chan Name</a>
	</ytd-channel-name></ytd-video-owner-renderer></ytd-watch-metadata>
	<ytd-rich-item-renderer>
		<a id="video-title-link" title="First" href="/watch?v=aaaaaaaaaaa&t=3">First</a>
	</ytd-rich-item-renderer>
</body></html>`

func TestYouTubeCommands(t *testing.T) {
	ctx := context.Background()
	doc := htmldom.MustParse("https://www.youtube.com/watch?v=zzzzzzzzzzz", youtubeChannel)
	_, pipe := attach(t, doc, newClock())

	info, err := pipe.Send(ctx, messenger.YtGetChannelInfo{})
	require.NoError(t, err)
	assert.Equal(t, "chan", info.Channel().Handle)
	assert.Equal(t, "Chan Name", info.Channel().Name)

	videos, err := pipe.Send(ctx, messenger.YouTubeScrapeVideos{})
	require.NoError(t, err)
	require.Len(t, videos.Videos, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaaaaaaaaaa", videos.Videos[0].URL)
	assert.Equal(t, "Chan Name", videos.ChannelName)
}

func TestChannelWatcherPushesOnChange(t *testing.T) {
	doc := htmldom.MustParse("https://www.youtube.com/watch?v=zzzzzzzzzzz", youtubeChannel)
	pipe := messenger.NewPipe(nil, 16)
	a := New(doc, pipe, Options{WatchInterval: 10 * time.Millisecond})
	pipe.SetHandler(a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	first := <-pipe.Events()
	push, ok := first.(messenger.YtChannelInfoPush)
	require.True(t, ok)
	assert.Equal(t, "chan", push.Payload.Handle)

	// unchanged channel: nothing more is pushed
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, drain(pipe))

	require.NoError(t, doc.SetHTML(`<html><body><ytd-channel-name><a class="yt-simple-endpoint" href="/@other">Other</a></ytd-channel-name></body></html>`))
	select {
	case e := <-pipe.Events():
		assert.Equal(t, "other", e.(messenger.YtChannelInfoPush).Payload.Handle)
	case <-time.After(2 * time.Second):
		t.Fatal("no push after channel change")
	}

	cancel()
	<-done
}

func TestUnsupportedCommand(t *testing.T) {
	doc := htmldom.MustParse("https://www.instagram.com/", `<html><body></body></html>`)
	a := New(doc, nil, Options{})
	_, err := a.Handle(context.Background(), bogus{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
}

func TestNilCommand(t *testing.T) {
	doc := htmldom.MustParse("https://www.instagram.com/", `<html><body></body></html>`)
	a := New(doc, nil, Options{})
	assert.NotPanics(t, func() {
		_, err := a.Handle(context.Background(), nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
	})
}

func TestPanicBecomesError(t *testing.T) {
	doc := htmldom.MustParse("https://www.instagram.com/", `<html><body></body></html>`)
	log := logger.NewTestLogger()
	a := New(panicky{doc}, nil, Options{Logger: log})
	_, err := a.Handle(context.Background(), messenger.PageInfo{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBrowser))
	assert.True(t, log.HasError())
}

type bogus struct{ messenger.Ping }

func (bogus) Action() string { return "bogus" }

type panicky struct{ *htmldom.Document }

func (panicky) Title() string { panic("detached frame") }
