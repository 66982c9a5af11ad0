package messenger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserrors "linkstash/pkg/errors"
	"linkstash/pkg/models"
)

func TestCommandWireFormat(t *testing.T) {
	wait := 3
	data, err := EncodeCommand(StartScrolling{WaitTime: &wait})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"startScrolling","waitTime":3}`, string(data))

	data, err = EncodeCommand(Ping{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"ping"}`, string(data))

	c, err := DecodeCommand([]byte(`{"action":"setPinterestMode","mode":"moreIdeas"}`))
	require.NoError(t, err)
	assert.Equal(t, SetPinterestMode{Mode: models.PinterestMoreIdeas}, c)

	c, err = DecodeCommand([]byte(`{"action":"youtube_scrapeVideos"}`))
	require.NoError(t, err)
	assert.IsType(t, YouTubeScrapeVideos{}, c)

	c, err = DecodeCommand([]byte(`{"action":"startScrolling"}`))
	require.NoError(t, err)
	assert.Nil(t, c.(StartScrolling).WaitTime)
}

func TestEveryCommandKeepsItsAction(t *testing.T) {
	for action, dec := range commandDecoders {
		c, err := dec([]byte(`{}`))
		require.NoError(t, err)
		require.Equal(t, action, c.Action())

		data, err := EncodeCommand(c)
		require.NoError(t, err)
		back, err := DecodeCommand(data)
		require.NoError(t, err)
		assert.Equal(t, action, back.Action())
	}
}

func TestEventWireFormat(t *testing.T) {
	data, err := EncodeEvent(PinterestNewLinks{Links: []string{"https://www.pinterest.com/pin/1/"}, Mode: models.PinterestBoard})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pinterestNewLinks","links":["https://www.pinterest.com/pin/1/"],"mode":"board"}`, string(data))

	data, err = EncodeEvent(ScrollComplete{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"scrollComplete"}`, string(data))

	e, err := DecodeEvent([]byte(`{"type":"ytChannelInfoPush","payload":{"name":"Chan","handle":"chan"}}`))
	require.NoError(t, err)
	assert.Equal(t, YtChannelInfoPush{Payload: models.ChannelInfo{Name: "Chan", Handle: "chan"}}, e)

	for typ, dec := range eventDecoders {
		e, err := dec([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, typ, e.Type())
	}
}

func TestUnknownAndMalformed(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"action":"launchRockets"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeEvent([]byte(`{"links":[]}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeCommand([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeCommand([]byte(`{"action":"startScrolling","waitTime":"soon"}`))
	assert.Error(t, err)
}

func TestLinksOf(t *testing.T) {
	e := NewLinksEvent(models.PlatformPinterest, []string{"a"}, models.PinterestMoreIdeas)
	p, links, mode, ok := LinksOf(e)
	require.True(t, ok)
	assert.Equal(t, models.PlatformPinterest, p)
	assert.Equal(t, []string{"a"}, links)
	assert.Equal(t, models.PinterestMoreIdeas, mode)

	_, _, _, ok = LinksOf(ScrollTimeUpdate{TimeRemaining: 1})
	assert.False(t, ok)
}

func TestPipePushIsNonBlocking(t *testing.T) {
	p := NewPipe(nil, 1)
	assert.True(t, p.Push(ScrollTimeUpdate{TimeRemaining: 1}))
	assert.False(t, p.Push(ScrollTimeUpdate{TimeRemaining: 0}), "buffer full")

	assert.Equal(t, ScrollTimeUpdate{TimeRemaining: 1}, <-p.Events())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.False(t, p.Push(ScrollComplete{}))
	_, open := <-p.Events()
	assert.False(t, open)

	_, err := p.Send(context.Background(), Ping{})
	assert.ErrorIs(t, err, ErrClosed)
}

func pong(ctx context.Context, c Command) (Reply, error) {
	return Reply{Status: StatusPong}, nil
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()

	ok := NewPipe(HandlerFunc(pong), 1)
	assert.NoError(t, Preflight(ctx, ok, time.Second))

	wrong := NewPipe(HandlerFunc(func(ctx context.Context, c Command) (Reply, error) {
		return Reply{Status: "hello"}, nil
	}), 1)
	assert.ErrorIs(t, Preflight(ctx, wrong, time.Second), ErrUnreachable)

	hung := NewPipe(HandlerFunc(func(ctx context.Context, c Command) (Reply, error) {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}), 1)
	err := Preflight(ctx, hung, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, lserrors.IsType(err, lserrors.ErrorTypeUnreachable))
	assert.Contains(t, err.Error(), "refresh the page")

	detached := NewPipe(nil, 1)
	assert.ErrorIs(t, Preflight(ctx, detached, time.Second), ErrUnreachable)

	failing := NewPipe(HandlerFunc(func(ctx context.Context, c Command) (Reply, error) {
		return Reply{}, errors.New("boom")
	}), 1)
	assert.ErrorIs(t, Preflight(ctx, failing, time.Second), ErrUnreachable)
}
