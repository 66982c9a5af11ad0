package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkstash/pkg/models"
)

func TestInstagram(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
		kind models.MediaKind
		ok   bool
	}{
		{"relative post", "/p/ABC123/", "https://www.instagram.com/p/ABC123/", models.MediaPicture, true},
		{"post without slash", "/p/ABC123", "https://www.instagram.com/p/ABC123/", models.MediaPicture, true},
		{"user reel", "/alice/reel/XyZ_9/", "https://www.instagram.com/alice/reel/XyZ_9/", models.MediaVideo, true},
		{"query and hash stripped", "/reel/R1/?igsh=abc#top", "https://www.instagram.com/reel/R1/", models.MediaVideo, true},
		{"absolute", "https://www.instagram.com/p/Q/?utm=1", "https://www.instagram.com/p/Q/", models.MediaPicture, true},
		{"upper-case host", "https://WWW.Instagram.com/p/Q/", "https://www.instagram.com/p/Q/", models.MediaPicture, true},
		{"foreign host", "https://evil.com/p/ABC/", "", "", false},
		{"lookalike host", "https://notinstagram.com/p/ABC/", "", "", false},
		{"profile", "/alice/", "", "", false},
		{"nested too deep", "/a/b/p/ABC/", "", "", false},
		{"reels tab", "/alice/reels/", "", "", false},
		{"empty", "", "", "", false},
		{"malformed", "http://[::1", "", "", false},
		{"javascript", "javascript:void(0)", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := Instagram(tt.href)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, item.URL)
				assert.Equal(t, tt.kind, item.MediaKind)
			}
		})
	}
}

func TestInstagramCanonicalIsIdempotent(t *testing.T) {
	hrefs := []string{"/p/A/", "/bob/reel/B?x=1", "https://www.instagram.com/p/C#c"}
	for _, h := range hrefs {
		first, ok := Instagram(h)
		assert.True(t, ok, h)
		second, ok := Instagram(first.URL)
		assert.True(t, ok, first.URL)
		assert.Equal(t, first, second)
		assert.NotContains(t, first.URL, "?")
		assert.NotContains(t, first.URL, "#")
		assert.Equal(t, byte('/'), first.URL[len(first.URL)-1])
	}
}

func TestTikTok(t *testing.T) {
	tests := []struct {
		href string
		want string
		kind models.MediaKind
		ok   bool
	}{
		{"https://www.tiktok.com/@alice/video/7234567890123", "https://www.tiktok.com/@alice/video/7234567890123", models.MediaVideo, true},
		{"https://www.tiktok.com/@alice/video/123?is_from_webapp=1", "https://www.tiktok.com/@alice/video/123", models.MediaVideo, true},
		{"https://www.tiktok.com/@alice/photo/456#x", "https://www.tiktok.com/@alice/photo/456", models.MediaPicture, true},
		{"https://www.tiktok.com/@alice/video/abc", "", "", false},
		{"https://tiktok.com/@alice/video/123", "", "", false},
		{"/@alice/video/123", "", "", false},
		{"https://www.tiktok.com/@alice", "", "", false},
	}

	for _, tt := range tests {
		item, ok := TikTok(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		if tt.ok {
			assert.Equal(t, tt.want, item.URL)
			assert.Equal(t, tt.kind, item.MediaKind)
		}
	}
}

func TestYouTubeVideo(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/watch?v=dQw4w9WgXcQ&list=PL1&index=2", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"/shorts/abcDEF123", "https://www.youtube.com/shorts/abcDEF123", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=3", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"/watch", "", false},
		{"/@channel/videos", "", false},
		{"https://vimeo.com/watch?v=dQw4w9WgXcQ", "", false},
	}

	for _, tt := range tests {
		item, ok := YouTubeVideo(tt.href, "")
		assert.Equal(t, tt.ok, ok, tt.href)
		if tt.ok {
			assert.Equal(t, tt.want, item.URL)
			assert.Equal(t, models.MediaVideo, item.MediaKind)
		}
	}
}

func TestYouTubeChannel(t *testing.T) {
	tests := []struct {
		href   string
		handle string
		ok     bool
	}{
		{"/@LinusTechTips", "LinusTechTips", true},
		{"/@LinusTechTips/videos", "LinusTechTips", true},
		{"/channel/UC123/featured", "UC123", true},
		{"/c/SomeName", "SomeName", true},
		{"/user/legacy", "legacy", true},
		{"https://www.youtube.com/@abs", "abs", true},
		{"/watch?v=x", "", false},
		{"/@", "", false},
	}

	for _, tt := range tests {
		info, ok := YouTubeChannel(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.handle, info.Handle, tt.href)
	}
	assert.True(t, IsChannelHref("/c/x"))
	assert.False(t, IsChannelHref("/watch"))
}

func TestPinterest(t *testing.T) {
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/pin/123456/", "https://www.pinterest.com/pin/123456/", true},
		{"https://ca.pinterest.com/pin/42?from=board#c", "https://ca.pinterest.com/pin/42/", true},
		{"https://www.pinterest.co.uk/pin/7/", "https://www.pinterest.co.uk/pin/7/", true},
		{"/pin/abc/", "", false},
		{"/pin/123/comments/", "", false},
		{"https://example.com/pin/123/", "", false},
		{"/alice/board/", "", false},
	}

	for _, tt := range tests {
		item, ok := Pinterest(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		if tt.ok {
			assert.Equal(t, tt.want, item.URL)
		}
	}
	assert.True(t, IsPinterestRoot("https://www.pinterest.com/?boardId=1"))
	assert.False(t, IsPinterestRoot("https://www.pinterest.com/alice/"))
}

func TestPlatformOf(t *testing.T) {
	tests := map[string]models.Platform{
		"https://www.instagram.com/alice/":  models.PlatformInstagram,
		"https://www.tiktok.com/@bob":       models.PlatformTikTok,
		"https://m.youtube.com/@c":          models.PlatformYouTube,
		"https://youtu.be/x":                models.PlatformYouTube,
		"https://ca.pinterest.com/":         models.PlatformPinterest,
		"https://www.pinterest.fr/a/board/": models.PlatformPinterest,
	}
	for u, want := range tests {
		got, ok := PlatformOf(u)
		assert.True(t, ok, u)
		assert.Equal(t, want, got, u)
	}
	_, ok := PlatformOf("https://example.com/")
	assert.False(t, ok)
	_, ok = PlatformOf("not a url")
	assert.False(t, ok)
}

func TestClassifyDispatchAndMediaKind(t *testing.T) {
	item, ok := Classify(models.PlatformTikTok, "https://www.tiktok.com/@a/photo/1")
	assert.True(t, ok)
	assert.Equal(t, models.MediaPicture, item.MediaKind)

	assert.Equal(t, models.MediaVideo, MediaKindOf(models.PlatformInstagram, "https://www.instagram.com/reel/x/"))
	assert.Equal(t, models.MediaUnknown, MediaKindOf(models.PlatformInstagram, "https://www.instagram.com/alice/"))
	_, ok = Classify("myspace", "/x")
	assert.False(t, ok)
}
