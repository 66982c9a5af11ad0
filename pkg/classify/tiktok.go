package classify

import (
	"regexp"
	"strings"

	"linkstash/pkg/models"
)

// TikTokVideoPattern matches a TikTok video or photo post URL
var TikTokVideoPattern = regexp.MustCompile(`^https://www\.tiktok\.com/[^/]+/(video|photo)/\d+`)

var tiktokUser = regexp.MustCompile(`^https://www\.tiktok\.com/@([^/?#]+)`)

// TikTok classifies video and photo posts. The query and fragment are
// stripped first; the canonical URL is the matched prefix.
func TikTok(href string) (models.DiscoveredItem, bool) {
	clean := strings.TrimSpace(href)
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	m := TikTokVideoPattern.FindStringSubmatch(clean)
	if m == nil {
		return models.DiscoveredItem{}, false
	}
	kind := models.MediaVideo
	if m[1] == "photo" {
		kind = models.MediaPicture
	}
	return models.DiscoveredItem{URL: m[0], MediaKind: kind}, true
}

// TikTokUsername extracts the @handle (without @) from a page URL
func TikTokUsername(pageURL string) string {
	if m := tiktokUser.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}
