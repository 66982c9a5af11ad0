package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"linkstash/pkg/models"
)

var (
	instagramSaved    = regexp.MustCompile(`^/([^/]+)/saved/([^/]+)/`)
	tiktokCollection  = regexp.MustCompile(`^https://www\.tiktok\.com/@([^/]+)/collection/([^/?#]+)`)
	trailingNumericID = regexp.MustCompile(`-[0-9]+$`)
)

// Target is the collection a page's items are merged into
type Target struct {
	Name string
	Meta models.CollectionMeta
}

// InstagramCollection names the collection for an Instagram page: the
// saved-folder name for bookmark pages, otherwise the profile handle.
func InstagramCollection(pageURL string) Target {
	u, ok := parse(pageURL, "")
	if !ok {
		return Target{Name: "my_collection", Meta: models.CollectionMeta{Type: models.CollectionProfile, Handle: "my_collection"}}
	}
	path := withTrailingSlash(u.Path)
	if m := instagramSaved.FindStringSubmatch(path); m != nil {
		return Target{Name: m[2], Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: m[2]}}
	}
	if segs := segments(u.Path); len(segs) > 0 {
		return Target{Name: segs[0], Meta: models.CollectionMeta{Type: models.CollectionProfile, Handle: segs[0]}}
	}
	return Target{Name: "my_collection", Meta: models.CollectionMeta{Type: models.CollectionProfile, Handle: strings.TrimPrefix(u.Hostname(), "www.")}}
}

// TikTokCollection names the collection for a TikTok page. Named
// collection pages win over the detected profile section.
func TikTokCollection(pageURL, username string, section models.TikTokSection) Target {
	if username == "" {
		username = TikTokUsername(pageURL)
	}
	if username == "" {
		username = "unknown"
	}

	if m := tiktokCollection.FindStringSubmatch(pageURL); m != nil {
		slug := m[2]
		if dec, err := url.PathUnescape(slug); err == nil {
			slug = dec
		}
		pretty := trailingNumericID.ReplaceAllString(slug, "")
		handle := pretty
		if handle == "" {
			handle = slug
		}
		return Target{
			Name: fmt.Sprintf("collection_%s_%s", username, pretty),
			Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: handle},
		}
	}

	switch section {
	case models.SectionVideos:
		return Target{Name: username + "_profile", Meta: models.CollectionMeta{Type: models.CollectionProfile, Handle: username}}
	case models.SectionLiked:
		return Target{Name: username + "_liked", Meta: models.CollectionMeta{Type: models.CollectionLiked, Handle: username}}
	case models.SectionReposts:
		return Target{Name: username + "_reposts", Meta: models.CollectionMeta{Type: models.CollectionReposts, Handle: username}}
	case models.SectionFavorites:
		return Target{Name: username + "_favorites", Meta: models.CollectionMeta{Type: models.CollectionFavorites, Handle: username}}
	default:
		return Target{Name: "unsorted", Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: "unsorted"}}
	}
}

// TikTokSingle is where a single bookmarked video lands
var TikTokSingle = Target{Name: "single_bookmarks", Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: "single_bookmarks"}}

// TikTokAllOnPage is where "bookmark all on page" lands
var TikTokAllOnPage = Target{Name: "all_tiktok_links", Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: "all_tiktok_links"}}

// YouTubeCollection names the collection for a YouTube page: the playlist
// when one is open, else the channel's videos.
func YouTubeCollection(pageURL string, channel models.ChannelInfo, playlist string) Target {
	if playlist != "" && YouTubePlaylistID(pageURL) != "" {
		handle := channel.Handle
		if handle == "" {
			handle = YouTubePlaylistID(pageURL)
		}
		return Target{Name: playlist, Meta: models.CollectionMeta{Type: models.CollectionPlaylist, Handle: handle}}
	}
	if channel.Handle != "" {
		return Target{Name: channel.Handle + "_videos", Meta: models.CollectionMeta{Type: models.CollectionVideo, Handle: channel.Handle}}
	}
	if u, ok := parse(pageURL, ""); ok {
		if ch, ok := YouTubeChannel(u.Path); ok {
			return Target{Name: ch.Handle + "_videos", Meta: models.CollectionMeta{Type: models.CollectionVideo, Handle: ch.Handle}}
		}
	}
	return Target{Name: "single_videos", Meta: models.CollectionMeta{Type: models.CollectionVideo, Handle: "youtube"}}
}

// PinterestCollection names the collection for a Pinterest page. Board
// pages use user_board; "more ideas" pins go to a sibling collection.
func PinterestCollection(pageURL, section string, mode models.PinterestMode) Target {
	var t Target
	u, ok := parse(pageURL, "")
	segs := []string{}
	if ok {
		segs = segments(u.Path)
	}

	switch {
	case len(segs) >= 2 && segs[0] != "pin" && segs[0] != "search":
		t = Target{Name: segs[0] + "_" + segs[1], Meta: models.CollectionMeta{Type: models.CollectionBookmarks, Handle: segs[0]}}
	case len(segs) == 0:
		name := slug(section)
		if name == "" {
			name = "home_feed"
		}
		t = Target{Name: name, Meta: models.CollectionMeta{Type: models.CollectionRecommendation, Handle: "homefeed"}}
	default:
		t = Target{Name: "pinterest_" + strings.Join(segs, "_"), Meta: models.CollectionMeta{Type: models.CollectionRecommendation, Handle: segs[0]}}
	}

	if mode == models.PinterestMoreIdeas {
		t.Name += "_more_ideas"
		t.Meta.Type = models.CollectionRecommendation
	}
	return t
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// PageTitle is a short human label for the page being collected
func PageTitle(platform models.Platform, pageURL string, section models.TikTokSection) string {
	u, ok := parse(pageURL, "")
	switch platform {
	case models.PlatformInstagram:
		if ok {
			if m := instagramSaved.FindStringSubmatch(withTrailingSlash(u.Path)); m != nil {
				return "Bookmarks: " + m[2]
			}
			if segs := segments(u.Path); len(segs) > 0 {
				return "Instagram Page: " + segs[0]
			}
		}
		return "Instagram Page"

	case models.PlatformTikTok:
		if m := tiktokCollection.FindStringSubmatch(pageURL); m != nil {
			return "TikTok Collection: " + trailingNumericID.ReplaceAllString(m[2], "")
		}
		if user := TikTokUsername(pageURL); user != "" {
			label := ""
			switch section {
			case models.SectionFavorites:
				label = " Favorites"
			case models.SectionLiked:
				label = " Liked"
			case models.SectionReposts:
				label = " Reposts"
			}
			return "TikTok Page: " + user + label
		}
		return "TikTok Page"

	case models.PlatformYouTube:
		if ok {
			if m := youtubeHandle.FindStringSubmatch(u.Path); m != nil {
				return "YouTube Channel: " + m[1]
			}
			if strings.HasPrefix(u.Path, "/channel/") {
				return "YouTube Channel"
			}
			if u.Path == "/playlist" {
				return "YouTube Playlist"
			}
			if strings.HasPrefix(u.Path, "/watch") {
				return "YouTube Video"
			}
		}
		return "YouTube"

	case models.PlatformPinterest:
		if ok && len(segments(u.Path)) >= 2 {
			segs := segments(u.Path)
			return "Pinterest Board: " + segs[0] + "/" + segs[1]
		}
		return "Pinterest"
	}
	return pageURL
}
