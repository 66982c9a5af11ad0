package scan

import (
	"strings"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom"
	"linkstash/pkg/models"
)

const youtubeCards = "ytd-rich-item-renderer, ytd-grid-video-renderer, ytd-video-renderer, " +
	"ytd-playlist-video-renderer, ytd-compact-video-renderer, ytd-reel-item-renderer"

// owner block selectors, most reliable first
var youtubeOwner = []string{
	`ytd-watch-metadata ytd-video-owner-renderer ytd-channel-name yt-formatted-string#text a`,
	`ytd-watch-metadata ytd-video-owner-renderer ytd-channel-name a`,
	`#owner ytd-channel-name yt-formatted-string#text a`,
	`ytd-video-owner-renderer a.yt-simple-endpoint.yt-formatted-string`,
	`ytd-channel-name #text a`,
	`a.yt-simple-endpoint[href*="/@"], a.yt-simple-endpoint[href*="/channel/"], a.yt-simple-endpoint[href*="/c/"], a.yt-simple-endpoint[href*="/user/"]`,
}

// YouTube returns the video cards not seen before in this session, with
// their titles.
func YouTube(doc dom.Document, sess *Session) (Result, []models.Video) {
	items, videos := youtubeCandidates(doc)
	fresh := sess.collect(BucketFor(models.PlatformYouTube), items)

	isNew := make(map[string]bool, len(fresh))
	for _, it := range fresh {
		isNew[it.URL] = true
	}
	var newVideos []models.Video
	for _, v := range videos {
		if isNew[v.URL] {
			newVideos = append(newVideos, v)
		}
	}
	return Result{Platform: models.PlatformYouTube, Items: fresh}, newVideos
}

// YouTubeVideos returns every video card on the page with its title,
// ignoring any session.
func YouTubeVideos(doc dom.Document) []models.Video {
	_, videos := youtubeCandidates(doc)
	return videos
}

func youtubeCandidates(doc dom.Document) ([]models.DiscoveredItem, []models.Video) {
	base := origin(doc.URL())
	var items []models.DiscoveredItem
	var videos []models.Video
	seen := make(map[string]bool)

	for _, card := range doc.QueryAll(nil, youtubeCards) {
		a := dom.Query(doc, card, "a#thumbnail[href]")
		if a == nil {
			a = dom.Query(doc, card, "a#video-title[href]")
		}
		if a == nil {
			a = dom.Query(doc, card, "a[href]")
		}
		if a == nil {
			continue
		}
		item, ok := classify.YouTubeVideo(dom.AttrOr(a, "href"), base)
		if !ok || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		items = append(items, item)
		videos = append(videos, models.Video{URL: item.URL, Title: youtubeTitle(doc, card)})
	}
	return items, videos
}

func youtubeTitle(doc dom.Document, card dom.Element) string {
	t := dom.Query(doc, card, "#video-title")
	if t == nil {
		return ""
	}
	if text := t.Text(); text != "" {
		return text
	}
	return strings.TrimSpace(dom.AttrOr(t, "title"))
}

// YouTubeChannel identifies the channel that owns the current page from
// its owner block, falling back to the page URL.
func YouTubeChannel(doc dom.Document) (models.ChannelInfo, bool) {
	for _, sel := range youtubeOwner {
		a := dom.Query(doc, nil, sel)
		if a == nil {
			continue
		}
		href := dom.AttrOr(a, "href")
		if !classify.IsChannelHref(href) {
			continue
		}
		info, ok := classify.YouTubeChannel(href)
		if !ok {
			continue
		}
		info.Name = channelName(doc, a)
		if base := origin(doc.URL()); base != "" {
			info.ChannelURL = base + href
		}
		return info, true
	}

	if info, ok := classify.YouTubeChannel(doc.URL()); ok {
		return info, true
	}
	return models.ChannelInfo{}, false
}

func channelName(doc dom.Document, a dom.Element) string {
	if t := a.Text(); t != "" {
		return t
	}
	if f := dom.Closest(doc, a, "yt-formatted-string"); f != nil {
		return strings.TrimSpace(dom.AttrOr(f, "title"))
	}
	return ""
}

// YouTubePlaylistName reads the open playlist's title
func YouTubePlaylistName(doc dom.Document) string {
	for _, sel := range []string{"ytd-playlist-header-renderer #title", "h1"} {
		if el := dom.Query(doc, nil, sel); el != nil {
			if t := el.Text(); t != "" {
				return t
			}
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(doc.Title(), " - YouTube"))
}
