package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkstash/pkg/models"
)

func TestInstagramCollection(t *testing.T) {
	tests := []struct {
		url  string
		name string
		meta models.CollectionMeta
	}{
		{"https://www.instagram.com/alice/saved/travel/17890/", "travel", models.CollectionMeta{Type: models.CollectionBookmarks, Handle: "travel"}},
		{"https://www.instagram.com/alice/saved/all-posts/", "all-posts", models.CollectionMeta{Type: models.CollectionBookmarks, Handle: "all-posts"}},
		{"https://www.instagram.com/alice/reels/", "alice", models.CollectionMeta{Type: models.CollectionProfile, Handle: "alice"}},
		{"https://www.instagram.com/", "my_collection", models.CollectionMeta{Type: models.CollectionProfile, Handle: "instagram.com"}},
	}
	for _, tt := range tests {
		got := InstagramCollection(tt.url)
		assert.Equal(t, tt.name, got.Name, tt.url)
		assert.Equal(t, tt.meta, got.Meta, tt.url)
	}
}

func TestTikTokCollection(t *testing.T) {
	tests := []struct {
		url     string
		user    string
		section models.TikTokSection
		name    string
		typ     models.CollectionType
	}{
		{"https://www.tiktok.com/@alice/collection/Cute%20cats-7301234", "", models.SectionUnknown, "collection_alice_Cute cats", models.CollectionBookmarks},
		{"https://www.tiktok.com/@alice", "alice", models.SectionLiked, "alice_liked", models.CollectionLiked},
		{"https://www.tiktok.com/@alice", "", models.SectionReposts, "alice_reposts", models.CollectionReposts},
		{"https://www.tiktok.com/@alice", "alice", models.SectionVideos, "alice_profile", models.CollectionProfile},
		{"https://www.tiktok.com/@alice", "alice", models.SectionFavorites, "alice_favorites", models.CollectionFavorites},
		{"https://www.tiktok.com/foryou", "", models.SectionUnknown, "unsorted", models.CollectionBookmarks},
	}
	for _, tt := range tests {
		got := TikTokCollection(tt.url, tt.user, tt.section)
		assert.Equal(t, tt.name, got.Name, tt.url)
		assert.Equal(t, tt.typ, got.Meta.Type, tt.url)
	}
}

func TestYouTubeCollection(t *testing.T) {
	got := YouTubeCollection("https://www.youtube.com/playlist?list=PL9", models.ChannelInfo{Handle: "chan"}, "Road trip")
	assert.Equal(t, "Road trip", got.Name)
	assert.Equal(t, models.CollectionPlaylist, got.Meta.Type)

	got = YouTubeCollection("https://www.youtube.com/@chan/videos", models.ChannelInfo{}, "")
	assert.Equal(t, "chan_videos", got.Name)
	assert.Equal(t, models.CollectionVideo, got.Meta.Type)

	got = YouTubeCollection("https://www.youtube.com/watch?v=abcdefg", models.ChannelInfo{Handle: "owner"}, "")
	assert.Equal(t, "owner_videos", got.Name)

	got = YouTubeCollection("https://www.youtube.com/results?search_query=x", models.ChannelInfo{}, "")
	assert.Equal(t, "single_videos", got.Name)
}

func TestPinterestCollection(t *testing.T) {
	got := PinterestCollection("https://www.pinterest.com/alice/kitchens/", "", models.PinterestBoard)
	assert.Equal(t, "alice_kitchens", got.Name)
	assert.Equal(t, models.CollectionBookmarks, got.Meta.Type)

	got = PinterestCollection("https://www.pinterest.com/alice/kitchens/", "", models.PinterestMoreIdeas)
	assert.Equal(t, "alice_kitchens_more_ideas", got.Name)
	assert.Equal(t, models.CollectionRecommendation, got.Meta.Type)

	got = PinterestCollection("https://www.pinterest.com/", "Dark fantasy", models.PinterestBoard)
	assert.Equal(t, "dark_fantasy", got.Name)

	got = PinterestCollection("https://www.pinterest.com/", "", models.PinterestBoard)
	assert.Equal(t, "home_feed", got.Name)
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Bookmarks: travel", PageTitle(models.PlatformInstagram, "https://www.instagram.com/a/saved/travel/1/", ""))
	assert.Equal(t, "TikTok Page: alice Liked", PageTitle(models.PlatformTikTok, "https://www.tiktok.com/@alice", models.SectionLiked))
	assert.Equal(t, "TikTok Collection: cats", PageTitle(models.PlatformTikTok, "https://www.tiktok.com/@alice/collection/cats-123", ""))
	assert.Equal(t, "YouTube Channel: @chan", PageTitle(models.PlatformYouTube, "https://www.youtube.com/@chan", ""))
	assert.Equal(t, "YouTube Video", PageTitle(models.PlatformYouTube, "https://www.youtube.com/watch?v=1", ""))
	assert.Equal(t, "Pinterest Board: a/b", PageTitle(models.PlatformPinterest, "https://www.pinterest.com/a/b/", ""))
}
