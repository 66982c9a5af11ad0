package classify

import (
	"net/url"
	"regexp"
	"strings"

	"linkstash/pkg/models"
)

const youtubeOrigin = "https://www.youtube.com"

var (
	youtubeID     = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	youtubeHandle = regexp.MustCompile(`/(@[A-Za-z0-9._-]+)`)
)

// ChannelPrefixes are the path prefixes that identify a channel link
var ChannelPrefixes = []string{"/@", "/channel/", "/c/", "/user/"}

// YouTubeVideo classifies watch, shorts and youtu.be links. href resolves
// against origin (www.youtube.com when empty).
func YouTubeVideo(href, origin string) (models.DiscoveredItem, bool) {
	if origin == "" {
		origin = youtubeOrigin
	}
	u, ok := parse(href, origin)
	if !ok {
		return models.DiscoveredItem{}, false
	}

	host := strings.ToLower(u.Hostname())
	var id, form string
	switch {
	case host == "youtu.be":
		id, form = strings.Trim(u.Path, "/"), "watch"
	case hostIs(host, "youtube.com"):
		switch {
		case u.Path == "/watch":
			id, form = u.Query().Get("v"), "watch"
		case strings.HasPrefix(u.Path, "/shorts/"):
			id, form = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/"), "shorts"
		}
	}
	if !youtubeID.MatchString(id) {
		return models.DiscoveredItem{}, false
	}

	if form == "shorts" {
		return models.DiscoveredItem{URL: youtubeOrigin + "/shorts/" + id, MediaKind: models.MediaVideo}, true
	}
	return models.DiscoveredItem{
		URL:       youtubeOrigin + "/watch?v=" + url.QueryEscape(id),
		MediaKind: models.MediaVideo,
	}, true
}

// IsChannelHref reports whether href starts with a channel prefix
func IsChannelHref(href string) bool {
	for _, p := range ChannelPrefixes {
		if strings.HasPrefix(href, p) {
			return true
		}
	}
	return false
}

// YouTubeChannel derives a channel handle from an owner link. Absolute
// links are reduced to their path first.
func YouTubeChannel(href string) (models.ChannelInfo, bool) {
	path := href
	if u, ok := parse(href, youtubeOrigin); ok {
		if !hostIs(u.Hostname(), "youtube.com") {
			return models.ChannelInfo{}, false
		}
		path = u.Path
	}
	for _, p := range ChannelPrefixes {
		if !strings.HasPrefix(path, p) {
			continue
		}
		rest := strings.TrimPrefix(path, p)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			return models.ChannelInfo{}, false
		}
		return models.ChannelInfo{
			Handle:     rest,
			ChannelURL: youtubeOrigin + p + rest,
		}, true
	}
	return models.ChannelInfo{}, false
}

// YouTubePlaylistID returns the list= parameter of a playlist page
func YouTubePlaylistID(pageURL string) string {
	u, ok := parse(pageURL, "")
	if !ok || !hostIs(u.Hostname(), "youtube.com") {
		return ""
	}
	return u.Query().Get("list")
}
