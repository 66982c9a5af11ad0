// Package collector drives a page agent through a messenger connection
// and merges everything it surfaces into the collection store.
package collector

import (
	"context"
	"sync"
	"time"

	"linkstash/pkg/classify"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
	"linkstash/pkg/models"
	"linkstash/pkg/scroll"
	"linkstash/pkg/store"
	"linkstash/pkg/ui"
)

const (
	defaultPingTimeout  = 2 * time.Second
	defaultPollInterval = 1500 * time.Millisecond
	defaultIdleCheck    = 5 * time.Second
	controlTimeout      = 2 * time.Second
)

// Options configures a Collector
type Options struct {
	PingTimeout  time.Duration
	PollInterval time.Duration
	// IdleCheck is how long a run may go without events before the agent
	// is asked whether it is still scrolling
	IdleCheck time.Duration
	Logger    logger.Logger
	Reporter  ui.Reporter
}

// Request describes one collection run
type Request struct {
	// Name overrides the derived collection name
	Name string
	// Meta overrides the derived collection meta
	Meta *models.CollectionMeta
	// WaitTime overrides the agent's countdown between scroll actions
	WaitTime      *int
	PinterestMode models.PinterestMode
	// PollFavorites forces the TikTok favourites poll loop on pages that
	// are not detected as the favourites tab
	PollFavorites bool
}

// Summary reports what a run merged
type Summary struct {
	URL        string
	Platform   models.Platform
	Collection string
	Meta       models.CollectionMeta
	Added      int
	Total      int
	Reason     string
	Cancelled  bool
	Duration   time.Duration
}

// Collector is the controller side of a single page
type Collector struct {
	conn  messenger.Conn
	store *store.Store
	opts  Options
	log   logger.Logger
	rep   ui.Reporter

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a collector for the page behind conn
func New(conn messenger.Conn, st *store.Store, opts Options) *Collector {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.IdleCheck <= 0 {
		opts.IdleCheck = defaultIdleCheck
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = ui.NopReporter{}
	}
	return &Collector{
		conn:  conn,
		store: st,
		opts:  opts,
		log:   opts.Logger.WithField("component", "collector"),
		rep:   opts.Reporter,
	}
}

// run holds the state of one Run call
type run struct {
	platform models.Platform
	target   classify.Target
	mode     models.PinterestMode
	section  models.TikTokSection

	// guards summary against the favourites poller
	mu      sync.Mutex
	summary Summary
}

// Run collects the page until the agent reports completion or ctx ends.
// A cancelled run still returns the partial summary.
func (c *Collector) Run(ctx context.Context, req Request) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		cancel()
		return Summary{}, errors.New(errors.ErrorTypeInvalidInput, "a collection is already running on this page")
	}
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	if err := messenger.Preflight(ctx, c.conn, c.opts.PingTimeout); err != nil {
		c.rep.LogError("%v", err)
		return Summary{}, err
	}

	r, title, err := c.prepare(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	log := c.log.WithFields(map[string]interface{}{
		"platform":   r.platform,
		"collection": r.target.Name,
	})

	if err := c.store.EnsureCollection(r.platform, r.target.Name, &r.target.Meta); err != nil {
		return Summary{}, err
	}
	r.summary.Total = len(c.store.Bookmarks(r.platform, r.target.Name))
	c.rep.CollectionStarted(string(r.platform), title, r.target.Name)
	log.Info("Collection started")

	if _, err := c.conn.Send(ctx, messenger.StartScrolling{WaitTime: req.WaitTime}); err != nil {
		return r.summary, errors.Wrap(errors.ErrorTypeUnreachable, "starting scroll", err)
	}

	stopPoll := func() {}
	if r.platform == models.PlatformTikTok && (r.section == models.SectionFavorites || req.PollFavorites) {
		stopPoll = c.pollFavorites(ctx, r)
	}

	err = c.consume(ctx, r)
	stopPoll()

	if ctx.Err() != nil {
		r.summary.Cancelled = true
		cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), controlTimeout)
		if _, cerr := c.conn.Send(cctx, messenger.CancelScrolling{}); cerr != nil {
			log.WithError(cerr).Warn("Failed to cancel scrolling")
		}
		ccancel()
		r.summary.Duration = time.Since(start)
		c.rep.CollectionFinished(r.target.Name, r.summary.Total, "cancelled")
		log.InfoWithFields("Collection cancelled", map[string]interface{}{"added": r.summary.Added})
		return r.summary, nil
	}
	if err != nil {
		r.summary.Duration = time.Since(start)
		return r.summary, err
	}

	c.finalPass(ctx, r)
	r.summary.Duration = time.Since(start)
	c.rep.CollectionFinished(r.target.Name, r.summary.Total, r.summary.Reason)
	log.InfoWithFields("Collection finished", map[string]interface{}{
		"added":    r.summary.Added,
		"total":    r.summary.Total,
		"reason":   r.summary.Reason,
		"duration": r.summary.Duration,
	})
	return r.summary, nil
}

// prepare reads the page identity and derives the target collection
func (c *Collector) prepare(ctx context.Context, req Request) (*run, string, error) {
	info, err := c.conn.Send(ctx, messenger.PageInfo{})
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "reading page info", err)
	}
	platform, ok := classify.PlatformOf(info.URL)
	if !ok {
		return nil, "", errors.New(errors.ErrorTypeInvalidInput, "unsupported page: "+info.URL)
	}

	r := &run{platform: platform, mode: models.PinterestBoard}
	switch platform {
	case models.PlatformInstagram:
		r.target = classify.InstagramCollection(info.URL)

	case models.PlatformTikTok:
		reply, err := c.conn.Send(ctx, messenger.DetectTikTokSection{})
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "detecting tiktok section", err)
		}
		r.section = models.TikTokSection(reply.Section)
		r.target = classify.TikTokCollection(info.URL, reply.Username, r.section)

	case models.PlatformYouTube:
		channel, err := c.conn.Send(ctx, messenger.YtGetChannelInfo{})
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "reading channel info", err)
		}
		playlist, err := c.conn.Send(ctx, messenger.YtGetPlaylistInfo{})
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "reading playlist info", err)
		}
		r.target = classify.YouTubeCollection(info.URL, channel.Channel(), playlist.PlaylistName)

	case models.PlatformPinterest:
		if req.PinterestMode == models.PinterestMoreIdeas {
			r.mode = models.PinterestMoreIdeas
		}
		section, err := c.conn.Send(ctx, messenger.PinterestGetSection{})
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "reading pinterest section", err)
		}
		r.target = classify.PinterestCollection(info.URL, section.Section, r.mode)
		if _, err := c.conn.Send(ctx, messenger.SetPinterestMode{Mode: r.mode}); err != nil {
			return nil, "", errors.Wrap(errors.ErrorTypeUnreachable, "setting pinterest mode", err)
		}
	}

	if req.Name != "" {
		r.target.Name = req.Name
		if req.Meta == nil {
			r.target.Meta = models.CollectionMeta{Type: models.CollectionProfile, Handle: req.Name}
		}
	}
	if req.Meta != nil {
		r.target.Meta = *req.Meta
	}

	r.summary = Summary{
		URL:        info.URL,
		Platform:   platform,
		Collection: r.target.Name,
		Meta:       r.target.Meta,
	}
	title := info.Title
	if title == "" {
		title = classify.PageTitle(platform, info.URL, r.section)
	}
	return r, title, nil
}

// consume merges agent events until the scroll session completes. Events
// are best-effort, so after IdleCheck without any the agent is asked for
// its status; an idle agent means the completion event was lost.
func (c *Collector) consume(ctx context.Context, r *run) error {
	events := c.conn.Events()
	idle := time.NewTimer(c.opts.IdleCheck)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return errors.Wrap(errors.ErrorTypeUnreachable, "page connection lost", messenger.ErrClosed)
			}
			if done := c.handleEvent(r, e); done {
				return nil
			}
			idle.Reset(c.opts.IdleCheck)
		case <-idle.C:
			status, err := c.Status(ctx)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					c.log.WithError(err).Debug("Idle check failed")
				}
			case status == string(scroll.Idle):
				c.log.Warn("Scrolling ended without a completion event")
				r.summary.Reason = ReasonAgentIdle
				return nil
			}
			idle.Reset(c.opts.IdleCheck)
		}
	}
}

func (c *Collector) handleEvent(r *run, e messenger.Event) bool {
	if p, links, mode, ok := messenger.LinksOf(e); ok {
		if p != r.platform {
			return false
		}
		if p == models.PlatformPinterest && mode != "" && mode != r.mode {
			return false
		}
		c.merge(r, links)
		return false
	}

	switch ev := e.(type) {
	case messenger.SelectionValidated:
		c.merge(r, ev.Links)
	case messenger.ScrollTimeUpdate:
		c.rep.TimeRemaining(ev.TimeRemaining)
	case messenger.ScrollComplete:
		r.summary.Reason = ev.Reason
		return true
	case messenger.YtChannelInfoPush:
		c.log.DebugWithFields("Channel changed", map[string]interface{}{
			"handle": ev.Payload.Handle,
			"name":   ev.Payload.Name,
		})
	}
	return false
}

// merge adds links to the active collection and reports the counts
func (c *Collector) merge(r *run, links []string) {
	if len(links) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	added := c.store.AddBookmarks(r.platform, r.target.Name, links)
	if len(added) == 0 {
		return
	}
	r.summary.Added += len(added)
	r.summary.Total = len(c.store.Bookmarks(r.platform, r.target.Name))
	c.rep.LinksAdded(r.target.Name, len(added), r.summary.Total)
}

// finalPass asks the page for everything it can still see and merges it
// once more. Failures only cost the extra links.
func (c *Collector) finalPass(ctx context.Context, r *run) {
	var links []string
	switch r.platform {
	case models.PlatformInstagram:
		reply, err := c.conn.Send(ctx, messenger.CollectInstagramPostLinks{})
		if err != nil {
			c.log.WithError(err).Warn("Instagram final pass failed")
			return
		}
		links = reply.Links

	case models.PlatformTikTok:
		if _, err := c.conn.Send(ctx, messenger.ScanTikTokFavoritesOnce{}); err != nil {
			c.log.WithError(err).Warn("TikTok final scan failed")
			return
		}
		reply, err := c.conn.Send(ctx, messenger.CollectTikTokFavorites{})
		if err != nil {
			c.log.WithError(err).Warn("TikTok final pass failed")
			return
		}
		links = reply.Links

	case models.PlatformYouTube:
		reply, err := c.conn.Send(ctx, messenger.YouTubeScrapeVideos{})
		if err != nil {
			c.log.WithError(err).Warn("YouTube final pass failed")
			return
		}
		for _, v := range reply.Videos {
			links = append(links, v.URL)
		}
	}
	c.merge(r, links)
}

// pollFavorites scans the TikTok favourites grid on a timer. The returned
// stop function may be called any number of times.
func (c *Collector) pollFavorites(ctx context.Context, r *run) func() {
	ctx, cancel := context.WithCancel(ctx)
	links := make(chan []string)
	done := make(chan struct{})

	go func() {
		defer close(links)
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reply, err := c.conn.Send(ctx, messenger.ScanTikTokFavoritesOnce{})
				if err != nil {
					if ctx.Err() == nil {
						c.log.WithError(err).Debug("Favourites poll failed")
					}
					continue
				}
				if len(reply.Links) == 0 {
					continue
				}
				select {
				case links <- reply.Links:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		defer close(done)
		for l := range links {
			c.merge(r, l)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// Pause stops scrolling without ending the run
func (c *Collector) Pause(ctx context.Context) error {
	_, err := c.conn.Send(ctx, messenger.StopScrolling{})
	return err
}

// Resume continues a paused run
func (c *Collector) Resume(ctx context.Context) error {
	_, err := c.conn.Send(ctx, messenger.ResumeScrolling{})
	return err
}

// Cancel ends the active run, which then returns its partial summary
func (c *Collector) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Status returns the agent's scroll status
func (c *Collector) Status(ctx context.Context) (string, error) {
	reply, err := c.conn.Send(ctx, messenger.PageInfo{})
	if err != nil {
		return "", err
	}
	return reply.Status, nil
}
