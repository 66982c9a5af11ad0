package messenger

import "linkstash/pkg/models"

// Command is a request from the controller to a page. The set of
// commands is closed; each variant carries its wire action name.
type Command interface {
	Action() string
	command()
}

const (
	ActionPing                   = "ping"
	ActionPageInfo               = "getPageInfo"
	ActionStartScrolling         = "startScrolling"
	ActionStopScrolling          = "stopScrolling"
	ActionResumeScrolling        = "resumeScrolling"
	ActionCancelScrolling        = "cancelScrolling"
	ActionScrollToBottom         = "scrollToBottom"
	ActionScanTikTokFavorites    = "scanTiktokFavoritesOnce"
	ActionResetTikTokFavorites   = "resetTiktokFavoritesState"
	ActionCollectTikTokFavorites = "collectTiktokFavoritesLinks"
	ActionDetectTikTokSection    = "detectTiktokSection"
	ActionCollectInstagram       = "collectInstagramPostLinks"
	ActionSetPinterestMode       = "setPinterestMode"
	ActionResetPinterestState    = "resetPinterestState"
	ActionPinterestGetSection    = "pinterestGetSection"
	ActionYtGetChannelInfo       = "ytGetChannelInfo"
	ActionYtGetPlaylistInfo      = "ytGetPlaylistInfo"
	ActionYouTubeScrapeVideos    = "youtube_scrapeVideos"
	ActionStartSelectionMode     = "startSelectionMode"
	ActionToggleSelection        = "toggleSelection"
	ActionValidateSelection      = "validateSelection"
	ActionCancelSelection        = "cancelSelection"
	ActionCollectAllVideoLinks   = "collectAllVideoLinks"
)

type Ping struct{}

// PageInfo asks for the page URL, title and scroll status
type PageInfo struct{}

// StartScrolling begins a scroll session. WaitTime overrides the
// configured countdown between scroll actions.
type StartScrolling struct {
	WaitTime *int `json:"waitTime,omitempty"`
}

type StopScrolling struct{}

type ResumeScrolling struct{}

type CancelScrolling struct{}

// ScrollToBottom scrolls once without starting a session
type ScrollToBottom struct{}

type ScanTikTokFavoritesOnce struct{}

type ResetTikTokFavoritesState struct{}

// CollectTikTokFavorites returns every TikTok link the page has surfaced
type CollectTikTokFavorites struct{}

type DetectTikTokSection struct{}

// CollectInstagramPostLinks runs a final pass and returns every Instagram
// link the page has surfaced.
type CollectInstagramPostLinks struct{}

type SetPinterestMode struct {
	Mode models.PinterestMode `json:"mode"`
}

// ResetPinterestState clears the dedup set of one mode, or both when
// Scope is empty or "all".
type ResetPinterestState struct {
	Scope string `json:"scope,omitempty"`
}

type PinterestGetSection struct{}

type YtGetChannelInfo struct{}

type YtGetPlaylistInfo struct{}

type YouTubeScrapeVideos struct{}

type StartSelectionMode struct{}

type ToggleSelection struct {
	URL string `json:"url"`
}

type ValidateSelection struct{}

type CancelSelection struct{}

type CollectAllVideoLinks struct{}

func (Ping) Action() string                      { return ActionPing }
func (PageInfo) Action() string                  { return ActionPageInfo }
func (StartScrolling) Action() string            { return ActionStartScrolling }
func (StopScrolling) Action() string             { return ActionStopScrolling }
func (ResumeScrolling) Action() string           { return ActionResumeScrolling }
func (CancelScrolling) Action() string           { return ActionCancelScrolling }
func (ScrollToBottom) Action() string            { return ActionScrollToBottom }
func (ScanTikTokFavoritesOnce) Action() string   { return ActionScanTikTokFavorites }
func (ResetTikTokFavoritesState) Action() string { return ActionResetTikTokFavorites }
func (CollectTikTokFavorites) Action() string    { return ActionCollectTikTokFavorites }
func (DetectTikTokSection) Action() string       { return ActionDetectTikTokSection }
func (CollectInstagramPostLinks) Action() string { return ActionCollectInstagram }
func (SetPinterestMode) Action() string          { return ActionSetPinterestMode }
func (ResetPinterestState) Action() string       { return ActionResetPinterestState }
func (PinterestGetSection) Action() string       { return ActionPinterestGetSection }
func (YtGetChannelInfo) Action() string          { return ActionYtGetChannelInfo }
func (YtGetPlaylistInfo) Action() string         { return ActionYtGetPlaylistInfo }
func (YouTubeScrapeVideos) Action() string       { return ActionYouTubeScrapeVideos }
func (StartSelectionMode) Action() string        { return ActionStartSelectionMode }
func (ToggleSelection) Action() string           { return ActionToggleSelection }
func (ValidateSelection) Action() string         { return ActionValidateSelection }
func (CancelSelection) Action() string           { return ActionCancelSelection }
func (CollectAllVideoLinks) Action() string      { return ActionCollectAllVideoLinks }

func (Ping) command()                      {}
func (PageInfo) command()                  {}
func (StartScrolling) command()            {}
func (StopScrolling) command()             {}
func (ResumeScrolling) command()           {}
func (CancelScrolling) command()           {}
func (ScrollToBottom) command()            {}
func (ScanTikTokFavoritesOnce) command()   {}
func (ResetTikTokFavoritesState) command() {}
func (CollectTikTokFavorites) command()    {}
func (DetectTikTokSection) command()       {}
func (CollectInstagramPostLinks) command() {}
func (SetPinterestMode) command()          {}
func (ResetPinterestState) command()       {}
func (PinterestGetSection) command()       {}
func (YtGetChannelInfo) command()          {}
func (YtGetPlaylistInfo) command()         {}
func (YouTubeScrapeVideos) command()       {}
func (StartSelectionMode) command()        {}
func (ToggleSelection) command()           {}
func (ValidateSelection) command()         {}
func (CancelSelection) command()           {}
func (CollectAllVideoLinks) command()      {}

// Reply is the response to any command. Fields a command does not use
// stay empty and are omitted on the wire.
type Reply struct {
	Status       string                  `json:"status,omitempty"`
	URL          string                  `json:"url,omitempty"`
	Title        string                  `json:"title,omitempty"`
	Links        []string                `json:"links,omitempty"`
	Items        []models.DiscoveredItem `json:"items,omitempty"`
	Username     string                  `json:"username,omitempty"`
	Section      string                  `json:"section,omitempty"`
	Mode         models.PinterestMode    `json:"mode,omitempty"`
	Name         string                  `json:"name,omitempty"`
	Handle       string                  `json:"handle,omitempty"`
	ChannelURL   string                  `json:"channelUrl,omitempty"`
	PlaylistName string                  `json:"playlistName,omitempty"`
	Videos       []models.Video          `json:"videos,omitempty"`
	ChannelName  string                  `json:"channelName,omitempty"`
	Selected     bool                    `json:"selected,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// Channel returns the channel fields of a ytGetChannelInfo reply
func (r Reply) Channel() models.ChannelInfo {
	return models.ChannelInfo{Name: r.Name, Handle: r.Handle, ChannelURL: r.ChannelURL}
}
