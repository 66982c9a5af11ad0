// Package classify maps raw anchor hrefs to canonical, typed items.
//
// Every function here is pure and total: malformed input yields ok=false,
// never a panic or an error. Canonical URLs are the dedup keys used by the
// scanner and the collection store.
package classify

import (
	"net/url"
	"strings"

	"linkstash/pkg/models"
)

// Classify dispatches href to the classifier for platform
func Classify(platform models.Platform, href string) (models.DiscoveredItem, bool) {
	switch platform {
	case models.PlatformInstagram:
		return Instagram(href)
	case models.PlatformTikTok:
		return TikTok(href)
	case models.PlatformYouTube:
		return YouTubeVideo(href, "")
	case models.PlatformPinterest:
		return Pinterest(href)
	default:
		return models.DiscoveredItem{}, false
	}
}

// MediaKindOf re-classifies a stored URL, falling back to unknown
func MediaKindOf(platform models.Platform, rawURL string) models.MediaKind {
	if item, ok := Classify(platform, rawURL); ok {
		return item.MediaKind
	}
	return models.MediaUnknown
}

// PlatformOf detects the platform a page URL belongs to
func PlatformOf(pageURL string) (models.Platform, bool) {
	u, ok := parse(pageURL, "")
	if !ok {
		return "", false
	}
	host := u.Hostname()
	switch {
	case hostIs(host, "instagram.com"):
		return models.PlatformInstagram, true
	case hostIs(host, "tiktok.com"):
		return models.PlatformTikTok, true
	case hostIs(host, "youtube.com"), host == "youtu.be":
		return models.PlatformYouTube, true
	case isPinterestHost(host):
		return models.PlatformPinterest, true
	}
	return "", false
}

// parse resolves raw against base (when relative) and rejects anything
// that is not http(s). It never panics.
func parse(raw, base string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !ref.IsAbs() {
		if base == "" {
			return nil, false
		}
		b, err := url.Parse(base)
		if err != nil {
			return nil, false
		}
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return nil, false
	}
	if ref.Host == "" {
		return nil, false
	}
	return ref, true
}

// hostIs matches domain itself or any subdomain of it
func hostIs(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
