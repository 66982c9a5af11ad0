package models

import (
	"encoding/json"
	"fmt"
)

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
)

var Platforms = []Platform{PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformPinterest}

func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

type MediaKind string

const (
	MediaVideo   MediaKind = "video"
	MediaPicture MediaKind = "picture"
	MediaUnknown MediaKind = "unknown"
)

type DiscoveredItem struct {
	URL       string    `json:"url"`
	MediaKind MediaKind `json:"mediaKind"`
}

type CollectionType string

const (
	CollectionBookmarks      CollectionType = "bookmarks"
	CollectionProfile        CollectionType = "profile"
	CollectionFavorites      CollectionType = "favorites"
	CollectionLiked          CollectionType = "liked"
	CollectionReposts        CollectionType = "reposts"
	CollectionRecommendation CollectionType = "recommendation"
	CollectionVideo          CollectionType = "video"
	CollectionPlaylist       CollectionType = "playlist"
)

type CollectionMeta struct {
	Type   CollectionType `json:"type"`
	Handle string         `json:"handle"`
}

// Bookmark is an accepted item inside a named collection. Only Collection
// changes after creation, and only through a rename.
type Bookmark struct {
	ID         string   `json:"id"`
	Platform   Platform `json:"platform"`
	URL        string   `json:"url"`
	Collection string   `json:"collection"`
}

// UnmarshalJSON also accepts records that key the ID as "uuid"
func (b *Bookmark) UnmarshalJSON(data []byte) error {
	type plain Bookmark
	var raw struct {
		plain
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Bookmark(raw.plain)
	if b.ID == "" {
		b.ID = raw.UUID
	}
	return nil
}

type ChannelInfo struct {
	Name       string `json:"name,omitempty"`
	Handle     string `json:"handle,omitempty"`
	ChannelURL string `json:"channelUrl,omitempty"`
}

func (c ChannelInfo) Empty() bool {
	return c.Name == "" && c.Handle == ""
}

type Video struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type PinterestMode string

const (
	PinterestBoard     PinterestMode = "board"
	PinterestMoreIdeas PinterestMode = "moreIdeas"
)

type TikTokSection string

const (
	SectionFavorites TikTokSection = "favorites"
	SectionLiked     TikTokSection = "liked"
	SectionReposts   TikTokSection = "reposts"
	SectionVideos    TikTokSection = "videos"
	SectionUnknown   TikTokSection = "unknown"
)
