package messenger

import (
	"encoding/json"
	"fmt"

	"linkstash/pkg/errors"
)

// ErrUnknownMessage is returned for a discriminant with no variant
var ErrUnknownMessage = errors.New(errors.ErrorTypeProtocol, "unknown message")

var commandDecoders = map[string]func([]byte) (Command, error){
	ActionPing:                   decodeCommand[Ping],
	ActionPageInfo:               decodeCommand[PageInfo],
	ActionStartScrolling:         decodeCommand[StartScrolling],
	ActionStopScrolling:          decodeCommand[StopScrolling],
	ActionResumeScrolling:        decodeCommand[ResumeScrolling],
	ActionCancelScrolling:        decodeCommand[CancelScrolling],
	ActionScrollToBottom:         decodeCommand[ScrollToBottom],
	ActionScanTikTokFavorites:    decodeCommand[ScanTikTokFavoritesOnce],
	ActionResetTikTokFavorites:   decodeCommand[ResetTikTokFavoritesState],
	ActionCollectTikTokFavorites: decodeCommand[CollectTikTokFavorites],
	ActionDetectTikTokSection:    decodeCommand[DetectTikTokSection],
	ActionCollectInstagram:       decodeCommand[CollectInstagramPostLinks],
	ActionSetPinterestMode:       decodeCommand[SetPinterestMode],
	ActionResetPinterestState:    decodeCommand[ResetPinterestState],
	ActionPinterestGetSection:    decodeCommand[PinterestGetSection],
	ActionYtGetChannelInfo:       decodeCommand[YtGetChannelInfo],
	ActionYtGetPlaylistInfo:      decodeCommand[YtGetPlaylistInfo],
	ActionYouTubeScrapeVideos:    decodeCommand[YouTubeScrapeVideos],
	ActionStartSelectionMode:     decodeCommand[StartSelectionMode],
	ActionToggleSelection:        decodeCommand[ToggleSelection],
	ActionValidateSelection:      decodeCommand[ValidateSelection],
	ActionCancelSelection:        decodeCommand[CancelSelection],
	ActionCollectAllVideoLinks:   decodeCommand[CollectAllVideoLinks],
}

var eventDecoders = map[string]func([]byte) (Event, error){
	TypeInstaNewLinks:      decodeEvent[InstaNewLinks],
	TypeTikTokNewLinks:     decodeEvent[TikTokNewLinks],
	TypeYouTubeNewLinks:    decodeEvent[YouTubeNewLinks],
	TypePinterestNewLinks:  decodeEvent[PinterestNewLinks],
	TypeScrollTimeUpdate:   decodeEvent[ScrollTimeUpdate],
	TypeScrollComplete:     decodeEvent[ScrollComplete],
	TypeYtChannelInfoPush:  decodeEvent[YtChannelInfoPush],
	TypeSelectionValidated: decodeEvent[SelectionValidated],
}

func decodeCommand[T Command](data []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeEvent[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeCommand writes c as a JSON object tagged with "action"
func EncodeCommand(c Command) ([]byte, error) {
	return tagged(c, "action", c.Action())
}

// DecodeCommand reads a JSON object tagged with "action"
func DecodeCommand(data []byte) (Command, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	dec, ok := commandDecoders[head.Action]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", ErrUnknownMessage, head.Action)
	}
	c, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Action, err)
	}
	return c, nil
}

// EncodeEvent writes e as a JSON object tagged with "type"
func EncodeEvent(e Event) ([]byte, error) {
	return tagged(e, "type", e.Type())
}

// DecodeEvent reads a JSON object tagged with "type"
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	dec, ok := eventDecoders[head.Type]
	if !ok {
		return nil, fmt.Errorf("%w: type %q", ErrUnknownMessage, head.Type)
	}
	e, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return e, nil
}

func tagged(v interface{}, key, tag string) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	fields[key] = raw
	return json.Marshal(fields)
}
