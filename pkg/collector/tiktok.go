package collector

import (
	"context"
	"time"

	"linkstash/pkg/classify"
	"linkstash/pkg/errors"
	"linkstash/pkg/messenger"
	"linkstash/pkg/models"
)

// tiktokPage checks the agent is up and on a TikTok page, returning the
// page info.
func (c *Collector) tiktokPage(ctx context.Context) (messenger.Reply, error) {
	if err := messenger.Preflight(ctx, c.conn, c.opts.PingTimeout); err != nil {
		c.rep.LogError("%v", err)
		return messenger.Reply{}, err
	}
	info, err := c.conn.Send(ctx, messenger.PageInfo{})
	if err != nil {
		return messenger.Reply{}, errors.Wrap(errors.ErrorTypeUnreachable, "reading page info", err)
	}
	if p, ok := classify.PlatformOf(info.URL); !ok || p != models.PlatformTikTok {
		return messenger.Reply{}, errors.New(errors.ErrorTypeInvalidInput, "not a TikTok page: "+info.URL)
	}
	return info, nil
}

// Reasons a run ends with besides the scroll driver's own
const (
	// the agent went idle but its completion event never arrived
	ReasonAgentIdle  = "agentIdle"
	ReasonBookmarked = "bookmarked"
	ReasonPageLinks  = "pageLinks"
	ReasonSelection  = "selection"
)

// storeLinks merges links into target and builds the summary for it
func (c *Collector) storeLinks(target classify.Target, pageURL string, links []string, start time.Time, reason string) (Summary, error) {
	if err := c.store.EnsureCollection(models.PlatformTikTok, target.Name, &target.Meta); err != nil {
		return Summary{}, err
	}
	c.rep.CollectionStarted(string(models.PlatformTikTok), classify.PageTitle(models.PlatformTikTok, pageURL, ""), target.Name)
	r := &run{platform: models.PlatformTikTok, target: target}
	r.summary = Summary{
		URL:        pageURL,
		Platform:   models.PlatformTikTok,
		Collection: target.Name,
		Meta:       target.Meta,
		Total:      len(c.store.Bookmarks(models.PlatformTikTok, target.Name)),
		Reason:     reason,
	}
	c.merge(r, links)
	r.summary.Duration = time.Since(start)
	c.rep.CollectionFinished(target.Name, r.summary.Total, reason)
	return r.summary, nil
}

// BookmarkSingle stores the video the page shows in the single bookmarks
// collection. The page URL is used after any redirect, so short links
// land under their canonical address.
func (c *Collector) BookmarkSingle(ctx context.Context) (Summary, error) {
	start := time.Now()
	info, err := c.tiktokPage(ctx)
	if err != nil {
		return Summary{}, err
	}
	item, ok := classify.TikTok(info.URL)
	if !ok {
		return Summary{URL: info.URL}, errors.New(errors.ErrorTypeInvalidInput, "not a TikTok video page: "+info.URL)
	}
	sum, err := c.storeLinks(classify.TikTokSingle, info.URL, []string{item.URL}, start, ReasonBookmarked)
	if err == nil {
		c.log.InfoWithFields("Video bookmarked", map[string]interface{}{"url": item.URL, "added": sum.Added})
	}
	return sum, err
}

// CollectAllOnPage stores every video link currently on the page, without
// scrolling, in the all-links collection.
func (c *Collector) CollectAllOnPage(ctx context.Context) (Summary, error) {
	start := time.Now()
	info, err := c.tiktokPage(ctx)
	if err != nil {
		return Summary{}, err
	}
	reply, err := c.conn.Send(ctx, messenger.CollectAllVideoLinks{})
	if err != nil {
		return Summary{URL: info.URL}, errors.Wrap(errors.ErrorTypeUnreachable, "collecting video links", err)
	}
	sum, err := c.storeLinks(classify.TikTokAllOnPage, info.URL, reply.Links, start, ReasonPageLinks)
	if err == nil {
		c.log.InfoWithFields("Page links collected", map[string]interface{}{"found": len(reply.Links), "added": sum.Added})
	}
	return sum, err
}

// Selection is a manual pick of video links on one TikTok page. It ends
// with Validate or Cancel.
type Selection struct {
	c      *Collector
	target classify.Target
	url    string
	start  time.Time
}

// Select puts the page into selection mode. Validated links go to the
// page's own collection, or to req.Name when set.
func (c *Collector) Select(ctx context.Context, req Request) (*Selection, error) {
	start := time.Now()
	if _, err := c.tiktokPage(ctx); err != nil {
		return nil, err
	}
	r, _, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Send(ctx, messenger.StartSelectionMode{}); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnreachable, "starting selection", err)
	}
	return &Selection{c: c, target: r.target, url: r.summary.URL, start: start}, nil
}

// Candidates lists the video links the page currently shows
func (s *Selection) Candidates(ctx context.Context) ([]string, error) {
	reply, err := s.c.conn.Send(ctx, messenger.CollectAllVideoLinks{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnreachable, "listing video links", err)
	}
	return dedupe(reply.Links), nil
}

// Toggle flips url in or out of the selection. A link the page ignores
// is an error.
func (s *Selection) Toggle(ctx context.Context, url string) (bool, error) {
	reply, err := s.c.conn.Send(ctx, messenger.ToggleSelection{URL: url})
	if err != nil {
		return false, errors.Wrap(errors.ErrorTypeUnreachable, "toggling selection", err)
	}
	if reply.Status != "toggled" {
		return false, errors.New(errors.ErrorTypeInvalidInput, "not a selectable video link: "+url)
	}
	return reply.Selected, nil
}

// Validate ends selection mode and stores the picked links
func (s *Selection) Validate(ctx context.Context) (Summary, error) {
	reply, err := s.c.conn.Send(ctx, messenger.ValidateSelection{})
	if err != nil {
		return Summary{URL: s.url}, errors.Wrap(errors.ErrorTypeUnreachable, "validating selection", err)
	}
	return s.c.storeLinks(s.target, s.url, reply.Links, s.start, ReasonSelection)
}

// Cancel ends selection mode without storing anything
func (s *Selection) Cancel(ctx context.Context) error {
	_, err := s.c.conn.Send(ctx, messenger.CancelSelection{})
	return err
}

// Collection is where validated links are stored
func (s *Selection) Collection() string { return s.target.Name }

func dedupe(links []string) []string {
	seen := make(map[string]bool, len(links))
	out := links[:0:0]
	for _, l := range links {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
