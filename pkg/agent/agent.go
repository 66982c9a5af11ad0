// Package agent is the page side of a collection: it owns the dedup
// sessions and the scroll driver for one document, answers messenger
// commands and pushes events to the controller.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
	"linkstash/pkg/models"
	"linkstash/pkg/scan"
	"linkstash/pkg/scroll"
)

type Options struct {
	Scroll scroll.Options
	// WatchInterval is how often a YouTube page is re-read for a channel
	// change; 0 disables the watcher.
	WatchInterval time.Duration
	Logger        logger.Logger
}

type Agent struct {
	doc    dom.Document
	push   messenger.Pusher
	sess   *scan.Session
	sel    *scan.Selection
	driver *scroll.Driver
	log    logger.Logger
	watch  time.Duration

	mu          sync.Mutex
	ctx         context.Context
	pinMode     models.PinterestMode
	lastChannel models.ChannelInfo
}

// New binds an agent to doc. Events go to push, which may be nil.
func New(doc dom.Document, push messenger.Pusher, opts Options) *Agent {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	log := opts.Logger.WithField("component", "agent")
	a := &Agent{
		doc:     doc,
		push:    push,
		sess:    scan.NewSession(log),
		sel:     scan.NewSelection(),
		log:     log,
		watch:   opts.WatchInterval,
		ctx:     context.Background(),
		pinMode: models.PinterestBoard,
	}
	so := opts.Scroll
	if so.Logger == nil {
		so.Logger = opts.Logger
	}
	a.driver = scroll.New(doc, scroll.ScannerFunc(a.step), a.onDriverEvent, so)
	return a
}

// Run ties the scroll loop to ctx and watches YouTube pages for channel
// changes until ctx ends.
func (a *Agent) Run(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	defer a.driver.Cancel()
	if a.watch <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(a.watch)
	defer ticker.Stop()
	a.checkChannel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.checkChannel(ctx)
		}
	}
}

// Driver exposes the scroll driver, mostly for status
func (a *Agent) Driver() *scroll.Driver { return a.driver }

// Session exposes the dedup sets
func (a *Agent) Session() *scan.Session { return a.sess }

func (a *Agent) runCtx() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

func (a *Agent) platform() models.Platform {
	p, _ := classify.PlatformOf(a.doc.URL())
	return p
}

func (a *Agent) pinterestMode() models.PinterestMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pinMode
}

// refresh re-reads a live document. Failures degrade to scanning the
// previous snapshot.
func (a *Agent) refresh(ctx context.Context) {
	r, ok := a.doc.(dom.Refresher)
	if !ok {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		a.log.WithError(err).Warn("refreshing page snapshot")
	}
}

func (a *Agent) emit(e messenger.Event) {
	if a.push == nil || e == nil {
		return
	}
	if !a.push.Push(e) {
		a.log.WithField("type", e.Type()).Debug("event dropped")
	}
}

// step is the driver's scanner: one incremental scan for the page's
// platform.
func (a *Agent) step(ctx context.Context) scan.Result {
	a.refresh(ctx)
	switch a.platform() {
	case models.PlatformInstagram:
		return scan.Instagram(a.doc, a.sess)
	case models.PlatformTikTok:
		return scan.TikTok(a.doc, a.sess)
	case models.PlatformYouTube:
		res, _ := scan.YouTube(a.doc, a.sess)
		return res
	case models.PlatformPinterest:
		return scan.Pinterest(a.doc, a.sess, a.pinterestMode())
	}
	return scan.Result{}
}

func (a *Agent) onDriverEvent(e scroll.Event) {
	switch e.Kind {
	case scroll.NewItems:
		a.emit(messenger.NewLinksEvent(e.Result.Platform, e.Result.URLs(), e.Result.Mode))
	case scroll.TimeUpdate:
		a.emit(messenger.ScrollTimeUpdate{TimeRemaining: e.TimeRemaining})
	case scroll.Complete:
		a.emit(messenger.ScrollComplete{Reason: e.Reason})
	}
}

func (a *Agent) checkChannel(ctx context.Context) {
	if a.platform() != models.PlatformYouTube {
		return
	}
	a.refresh(ctx)
	info, ok := scan.YouTubeChannel(a.doc)
	if !ok || info.Empty() {
		return
	}
	a.mu.Lock()
	changed := info != a.lastChannel
	a.lastChannel = info
	a.mu.Unlock()
	if changed {
		a.log.WithField("handle", info.Handle).Debug("channel changed")
		a.emit(messenger.YtChannelInfoPush{Payload: info})
	}
}

// Handle answers one command. Failures inside the page never escape as
// panics; they come back as errors.
func (a *Agent) Handle(ctx context.Context, c messenger.Command) (reply messenger.Reply, err error) {
	if c == nil {
		return messenger.Reply{}, errors.New(errors.ErrorTypeInvalidInput, "missing command")
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("action", c.Action()).Error(fmt.Sprintf("command panicked: %v", r))
			reply, err = messenger.Reply{}, errors.New(errors.ErrorTypeBrowser, fmt.Sprintf("%s failed: %v", c.Action(), r))
		}
	}()
	return a.handle(ctx, c)
}

func (a *Agent) handle(ctx context.Context, c messenger.Command) (messenger.Reply, error) {
	switch cmd := c.(type) {
	case messenger.Ping:
		return messenger.Reply{Status: messenger.StatusPong}, nil

	case messenger.PageInfo:
		return messenger.Reply{
			Status: string(a.driver.Status()),
			URL:    a.doc.URL(),
			Title:  a.doc.Title(),
		}, nil

	case messenger.StartScrolling:
		wait := -1
		if cmd.WaitTime != nil {
			wait = *cmd.WaitTime
		}
		a.driver.Start(a.runCtx(), wait)
		return messenger.Reply{Status: "Scrolling started"}, nil

	case messenger.StopScrolling:
		a.driver.Stop()
		return messenger.Reply{Status: "Scrolling stopped"}, nil

	case messenger.ResumeScrolling:
		a.driver.Resume(a.runCtx())
		return messenger.Reply{Status: "Scrolling resumed"}, nil

	case messenger.CancelScrolling:
		a.driver.Cancel()
		return messenger.Reply{Status: "Scrolling cancelled"}, nil

	case messenger.ScrollToBottom:
		if err := a.doc.ScrollToBottom(ctx); err != nil {
			return messenger.Reply{}, errors.Wrap(errors.ErrorTypeBrowser, "scrolling", err)
		}
		return messenger.Reply{Status: "Scrolling once"}, nil

	case messenger.ScanTikTokFavoritesOnce:
		a.refresh(ctx)
		return messenger.Reply{Links: scan.TikTok(a.doc, a.sess).URLs()}, nil

	case messenger.ResetTikTokFavoritesState:
		a.sess.Reset(scan.BucketFor(models.PlatformTikTok))
		return messenger.Reply{Status: "cleared"}, nil

	case messenger.CollectTikTokFavorites:
		return messenger.Reply{Links: scan.URLs(a.sess.Items(scan.BucketFor(models.PlatformTikTok)))}, nil

	case messenger.DetectTikTokSection:
		a.refresh(ctx)
		user, section := scan.DetectTikTokSection(a.doc)
		return messenger.Reply{Username: user, Section: string(section)}, nil

	case messenger.CollectInstagramPostLinks:
		a.refresh(ctx)
		items := a.withFinalPass(models.PlatformInstagram, scan.BucketFor(models.PlatformInstagram), "")
		return messenger.Reply{Links: scan.URLs(items), Items: items}, nil

	case messenger.SetPinterestMode:
		mode := models.PinterestBoard
		if cmd.Mode == models.PinterestMoreIdeas {
			mode = models.PinterestMoreIdeas
		}
		a.mu.Lock()
		a.pinMode = mode
		a.mu.Unlock()
		return messenger.Reply{Status: "ok", Mode: mode}, nil

	case messenger.ResetPinterestState:
		switch cmd.Scope {
		case string(models.PinterestBoard):
			a.sess.Reset(scan.PinterestBucket(models.PinterestBoard))
		case string(models.PinterestMoreIdeas):
			a.sess.Reset(scan.PinterestBucket(models.PinterestMoreIdeas))
		default:
			a.sess.Reset(scan.PinterestBucket(models.PinterestBoard))
			a.sess.Reset(scan.PinterestBucket(models.PinterestMoreIdeas))
		}
		return messenger.Reply{Status: "cleared"}, nil

	case messenger.PinterestGetSection:
		a.refresh(ctx)
		return messenger.Reply{Section: scan.PinterestSection(a.doc)}, nil

	case messenger.YtGetChannelInfo:
		a.refresh(ctx)
		info, ok := scan.YouTubeChannel(a.doc)
		a.mu.Lock()
		if ok && !info.Empty() {
			a.lastChannel = info
		} else {
			info = a.lastChannel
		}
		a.mu.Unlock()
		return messenger.Reply{Name: info.Name, Handle: info.Handle, ChannelURL: info.ChannelURL}, nil

	case messenger.YtGetPlaylistInfo:
		a.refresh(ctx)
		return messenger.Reply{PlaylistName: scan.YouTubePlaylistName(a.doc)}, nil

	case messenger.YouTubeScrapeVideos:
		a.refresh(ctx)
		info, _ := scan.YouTubeChannel(a.doc)
		return messenger.Reply{Videos: scan.YouTubeVideos(a.doc), ChannelName: info.Name}, nil

	case messenger.StartSelectionMode:
		a.sel.Start()
		return messenger.Reply{Status: "Selection mode started"}, nil

	case messenger.ToggleSelection:
		selected, ok := a.sel.Toggle(cmd.URL)
		if !ok {
			return messenger.Reply{Status: "ignored"}, nil
		}
		return messenger.Reply{Status: "toggled", Selected: selected}, nil

	case messenger.ValidateSelection:
		links := a.sel.Validate()
		a.emit(messenger.SelectionValidated{Links: links})
		return messenger.Reply{Status: "Selection validated", Links: links}, nil

	case messenger.CancelSelection:
		a.sel.Cancel()
		return messenger.Reply{Status: "Selection canceled"}, nil

	case messenger.CollectAllVideoLinks:
		a.refresh(ctx)
		return messenger.Reply{Links: scan.AllVideoLinks(a.doc)}, nil
	}
	return messenger.Reply{}, errors.New(errors.ErrorTypeInvalidInput, "unsupported command "+c.Action())
}

// withFinalPass returns the session's items for b followed by anything
// the final pass finds that the session missed. The session itself is
// left untouched.
func (a *Agent) withFinalPass(p models.Platform, b scan.Bucket, mode models.PinterestMode) []models.DiscoveredItem {
	items := a.sess.Items(b)
	have := make(map[string]bool, len(items))
	for _, it := range items {
		have[it.URL] = true
	}
	for _, it := range scan.FinalPass(a.doc, p, mode) {
		if !have[it.URL] {
			have[it.URL] = true
			items = append(items, it)
		}
	}
	return items
}
