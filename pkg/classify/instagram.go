package classify

import (
	"regexp"
	"strings"

	"linkstash/pkg/models"
)

const instagramOrigin = "https://www.instagram.com"

var (
	instagramReel = regexp.MustCompile(`^/(?:[^/]+/)?reel/[^/]+/?$`)
	instagramPost = regexp.MustCompile(`^/(?:[^/]+/)?p/[^/]+/?$`)
)

// Instagram classifies reels as video and posts as picture. Relative
// hrefs resolve against www.instagram.com; other hosts never match.
func Instagram(href string) (models.DiscoveredItem, bool) {
	u, ok := parse(href, instagramOrigin)
	if !ok || !hostIs(u.Hostname(), "instagram.com") {
		return models.DiscoveredItem{}, false
	}

	var kind models.MediaKind
	switch {
	case instagramReel.MatchString(u.Path):
		kind = models.MediaVideo
	case instagramPost.MatchString(u.Path):
		kind = models.MediaPicture
	default:
		return models.DiscoveredItem{}, false
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Path = withTrailingSlash(u.Path)
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return models.DiscoveredItem{URL: u.String(), MediaKind: kind}, true
}
