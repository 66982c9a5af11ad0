package scan

import (
	"net/url"
	"strings"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom"
	"linkstash/pkg/models"
)

// resolveHref returns el's href made absolute against the document URL,
// the way a live anchor's href property reads.
func resolveHref(doc dom.Document, el dom.Element) string {
	raw, ok := el.Attr("href")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(doc.URL())
	if err != nil || !base.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Instagram returns post and reel links not seen before in this session
func Instagram(doc dom.Document, sess *Session) Result {
	return Result{
		Platform: models.PlatformInstagram,
		Items:    sess.collect(BucketFor(models.PlatformInstagram), instagramCandidates(doc)),
	}
}

func instagramCandidates(doc dom.Document) []models.DiscoveredItem {
	var out []models.DiscoveredItem
	for _, a := range doc.QueryAll(nil, "a[href]") {
		raw := dom.AttrOr(a, "href")
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			raw = raw[:i]
		}
		if item, ok := classify.Instagram(raw); ok {
			out = append(out, item)
		}
	}
	return unique(out)
}

// FinalPass returns every item currently classifiable on the page for
// platform. It neither reads nor updates any session and never logs.
// mode only matters for Pinterest.
func FinalPass(doc dom.Document, platform models.Platform, mode models.PinterestMode) []models.DiscoveredItem {
	switch platform {
	case models.PlatformInstagram:
		return instagramCandidates(doc)
	case models.PlatformTikTok:
		return tiktokCandidates(doc)
	case models.PlatformYouTube:
		items, _ := youtubeCandidates(doc)
		return items
	case models.PlatformPinterest:
		var out []models.DiscoveredItem
		for _, p := range pinterestCandidates(doc) {
			if p.mode == pinterestMode(mode) {
				out = append(out, p.item)
			}
		}
		return out
	}
	return nil
}

// AllVideoLinks returns every anchor on the page that is a TikTok video,
// in document order, duplicates included.
func AllVideoLinks(doc dom.Document) []string {
	var out []string
	for _, a := range doc.QueryAll(nil, "a") {
		href := resolveHref(doc, a)
		if tiktokVideoOnly.MatchString(href) {
			out = append(out, href)
		}
	}
	return out
}
