package scan

import (
	"net/url"
	"regexp"
	"strings"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom"
	"linkstash/pkg/models"
)

const (
	tiktokAnchor      = `a[href^="https://www.tiktok.com/"]`
	tiktokFavorites   = `[data-e2e="favorites-item"] ` + tiktokAnchor
	tiktokFullScreen  = `div[aria-label="Watch in full screen"] ` + tiktokAnchor
	tiktokLikedTab    = `[data-e2e="liked-tab"][aria-selected="true"]`
	tiktokRepostTab   = `[data-e2e="repost-tab"][aria-selected="true"]`
	tiktokFavoriteTab = `[data-e2e="favorites-tab"][aria-selected="true"]`
	tiktokFavItem     = `[data-e2e="favorites-item"]`
	tiktokPostsRoot   = `[data-e2e="user-post-item-list"]`
	tiktokLikedRoot   = `[data-e2e="user-liked-item-list"]`
	tiktokRepostRoot  = `[data-e2e="user-repost-item-list"]`
)

var (
	// selection and "bookmark all" only take videos, never photo posts
	tiktokVideoOnly = regexp.MustCompile(`^https://www\.tiktok\.com/[^/]+/video/\d+`)
	tiktokProfile   = regexp.MustCompile(`/@([^/?#]+)`)
	favoriteClass   = regexp.MustCompile(`(?i)PFavorite`)
)

// TikTok returns the visible video and photo links of the active section
// not seen before in this session.
func TikTok(doc dom.Document, sess *Session) Result {
	return Result{
		Platform: models.PlatformTikTok,
		Items:    sess.collect(BucketFor(models.PlatformTikTok), tiktokCandidates(doc)),
	}
}

func tiktokCandidates(doc dom.Document) []models.DiscoveredItem {
	if !onTikTok(doc) {
		return nil
	}
	scope, selector, fallback := tiktokScope(doc)

	anchors := doc.QueryAll(scope, selector)
	if len(anchors) == 0 && fallback {
		anchors = doc.QueryAll(scope, tiktokAnchor)
	}

	var out []models.DiscoveredItem
	for _, a := range anchors {
		if !dom.Visible(a) {
			continue
		}
		if item, ok := classify.TikTok(resolveHref(doc, a)); ok {
			out = append(out, item)
		}
	}
	return unique(out)
}

func onTikTok(doc dom.Document) bool {
	u, err := url.Parse(doc.URL())
	return err == nil && strings.HasSuffix(strings.ToLower(u.Hostname()), ".tiktok.com")
}

func onCollectionPage(doc dom.Document) bool {
	u, err := url.Parse(doc.URL())
	return err == nil && strings.Contains(u.Path, "/collection/")
}

// onFavorites reports the favorites tab of a profile being active
func onFavorites(doc dom.Document) bool {
	if onCollectionPage(doc) {
		return false
	}
	if dom.Query(doc, nil, tiktokLikedTab) != nil || dom.Query(doc, nil, tiktokRepostTab) != nil {
		return false
	}
	if dom.Query(doc, nil, tiktokFavoriteTab) != nil {
		return true
	}
	return dom.Query(doc, nil, tiktokFavItem) != nil
}

// tiktokScope resolves the root, the anchor selector, and whether an empty
// result may fall back to every TikTok anchor in the root.
func tiktokScope(doc dom.Document) (dom.Element, string, bool) {
	liked := dom.Query(doc, nil, tiktokLikedRoot)
	repost := dom.Query(doc, nil, tiktokRepostRoot)
	posts := dom.Query(doc, nil, tiktokPostsRoot)

	selector, fallback := tiktokFullScreen, true
	switch {
	case onFavorites(doc):
		selector, fallback = tiktokFavorites, false
	case liked != nil, repost != nil, posts != nil:
		selector, fallback = tiktokAnchor, false
	}

	if onCollectionPage(doc) {
		if root := dom.Query(doc, nil, "#main-content-collection"); root != nil {
			return root, selector, fallback
		}
	}
	for _, root := range []dom.Element{liked, repost, posts} {
		if root != nil {
			return root, selector, fallback
		}
	}
	return nil, selector, fallback
}

// DetectTikTokSection reads the profile username from the URL and the
// active section from the selected tab.
func DetectTikTokSection(doc dom.Document) (string, models.TikTokSection) {
	username := ""
	if m := tiktokProfile.FindStringSubmatch(doc.URL()); m != nil {
		username = m[1]
	}

	switch {
	case dom.Query(doc, nil, tiktokLikedTab) != nil:
		return username, models.SectionLiked
	case dom.Query(doc, nil, tiktokRepostTab) != nil:
		return username, models.SectionReposts
	}

	var text, classes []string
	for _, tab := range doc.QueryAll(nil, `[role="tab"][aria-selected="true"]`) {
		text = append(text, strings.ToLower(tab.Text()))
		classes = append(classes, dom.AttrOr(tab, "class"))
	}
	joined := strings.Join(text, " ")
	switch {
	case strings.Contains(joined, "favorite") || favoriteClass.MatchString(strings.Join(classes, " ")):
		return username, models.SectionFavorites
	case strings.Contains(joined, "video") || strings.Contains(joined, "posts"):
		return username, models.SectionVideos
	}
	return username, models.SectionUnknown
}
