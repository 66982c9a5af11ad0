package messenger

import "linkstash/pkg/models"

// Event is a fire-and-forget push from a page to the controller
type Event interface {
	Type() string
	event()
}

const (
	TypeInstaNewLinks      = "instaNewLinks"
	TypeTikTokNewLinks     = "tiktokNewLinks"
	TypeYouTubeNewLinks    = "youtubeNewLinks"
	TypePinterestNewLinks  = "pinterestNewLinks"
	TypeScrollTimeUpdate   = "scrollTimeUpdate"
	TypeScrollComplete     = "scrollComplete"
	TypeYtChannelInfoPush  = "ytChannelInfoPush"
	TypeSelectionValidated = "selectionValidated"
)

type InstaNewLinks struct {
	Links []string `json:"links"`
}

type TikTokNewLinks struct {
	Links []string `json:"links"`
}

type YouTubeNewLinks struct {
	Links []string `json:"links"`
}

type PinterestNewLinks struct {
	Links []string             `json:"links"`
	Mode  models.PinterestMode `json:"mode"`
}

type ScrollTimeUpdate struct {
	TimeRemaining int `json:"timeRemaining"`
}

type ScrollComplete struct {
	Reason string `json:"reason,omitempty"`
}

type YtChannelInfoPush struct {
	Payload models.ChannelInfo `json:"payload"`
}

type SelectionValidated struct {
	Links []string `json:"links"`
}

func (InstaNewLinks) Type() string      { return TypeInstaNewLinks }
func (TikTokNewLinks) Type() string     { return TypeTikTokNewLinks }
func (YouTubeNewLinks) Type() string    { return TypeYouTubeNewLinks }
func (PinterestNewLinks) Type() string  { return TypePinterestNewLinks }
func (ScrollTimeUpdate) Type() string   { return TypeScrollTimeUpdate }
func (ScrollComplete) Type() string     { return TypeScrollComplete }
func (YtChannelInfoPush) Type() string  { return TypeYtChannelInfoPush }
func (SelectionValidated) Type() string { return TypeSelectionValidated }

func (InstaNewLinks) event()      {}
func (TikTokNewLinks) event()     {}
func (YouTubeNewLinks) event()    {}
func (PinterestNewLinks) event()  {}
func (ScrollTimeUpdate) event()   {}
func (ScrollComplete) event()     {}
func (YtChannelInfoPush) event()  {}
func (SelectionValidated) event() {}

// NewLinksEvent builds the per-platform new-links push
func NewLinksEvent(p models.Platform, links []string, mode models.PinterestMode) Event {
	switch p {
	case models.PlatformInstagram:
		return InstaNewLinks{Links: links}
	case models.PlatformTikTok:
		return TikTokNewLinks{Links: links}
	case models.PlatformYouTube:
		return YouTubeNewLinks{Links: links}
	case models.PlatformPinterest:
		return PinterestNewLinks{Links: links, Mode: mode}
	}
	return nil
}

// LinksOf unpacks a new-links event. ok is false for other events.
func LinksOf(e Event) (p models.Platform, links []string, mode models.PinterestMode, ok bool) {
	switch ev := e.(type) {
	case InstaNewLinks:
		return models.PlatformInstagram, ev.Links, "", true
	case TikTokNewLinks:
		return models.PlatformTikTok, ev.Links, "", true
	case YouTubeNewLinks:
		return models.PlatformYouTube, ev.Links, "", true
	case PinterestNewLinks:
		return models.PlatformPinterest, ev.Links, ev.Mode, true
	}
	return "", nil, "", false
}
