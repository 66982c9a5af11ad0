package htmldom

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/pkg/dom"
)

func TestBoxGeometry(t *testing.T) {
	d := MustParse("https://example.com/", `<html><body>
		<a id="placed" data-ls-top="420" data-ls-width="200" data-ls-height="80">p</a>
		<a id="hidden" hidden>h</a>
		<div style="display: none"><a id="inside">i</a></div>
		<a id="flat" data-ls-width="0">f</a>
		<a id="plain">x</a>
	</body></html>`)

	box := func(id string) dom.Box { return dom.Query(d, nil, "#"+id).Box() }

	assert.Equal(t, dom.Box{Top: 420, Width: 200, Height: 80}, box("placed"))
	assert.True(t, box("hidden").Empty())
	assert.True(t, box("inside").Empty())
	assert.True(t, box("flat").Empty())
	assert.False(t, box("plain").Empty())
	assert.Greater(t, box("plain").Top, box("flat").Top, "default top follows document order")
}

func TestScopedQueryAndParent(t *testing.T) {
	d := MustParse("https://example.com/", `<html><body>
		<ul id="a"><li><a href="1">1</a></li></ul>
		<ul id="b"><li><a href="2">2</a></li><li><a href="3">3</a></li></ul>
	</body></html>`)

	scope := dom.Query(d, nil, "#b")
	require.NotNil(t, scope)
	links := d.QueryAll(scope, "a")
	require.Len(t, links, 2)
	assert.Equal(t, "2", dom.AttrOr(links[0], "href"))

	assert.Equal(t, "li", links[0].Parent().Tag())
	assert.Equal(t, "b", dom.Closest(d, links[0], "ul").ID())
	assert.Nil(t, dom.Closest(d, links[0], "table"))
	assert.True(t, d.Matches(scope, "ul#b"))
	assert.False(t, d.Matches(scope, "ul#a"))
}

func TestTitleAndText(t *testing.T) {
	d := MustParse("https://www.youtube.com/playlist?list=PL1", `<html><head><title>  Mix
		- YouTube </title></head><body><h1> Hello   <b>world</b> </h1></body></html>`)
	assert.Equal(t, "Mix - YouTube", d.Title())
	assert.Equal(t, "Hello world", dom.Query(d, nil, "h1").Text())
	assert.Equal(t, "https://www.youtube.com/playlist?list=PL1", d.URL())
}

func TestScrollHookGrowsHeight(t *testing.T) {
	ctx := context.Background()
	d := MustParse("https://example.com/", `<html><body><div id="feed"></div></body></html>`)
	d.OnScroll(func(d *Document, n int) {
		if n <= 2 {
			require.NoError(t, d.AppendBody(fmt.Sprintf(`<a href="/p/%d/">%d</a>`, n, n)))
		}
	})

	h0, err := d.ScrollHeight(ctx)
	require.NoError(t, err)

	require.NoError(t, d.ScrollToBottom(ctx))
	h1, _ := d.ScrollHeight(ctx)
	assert.Greater(t, h1, h0)

	require.NoError(t, d.ScrollToBottom(ctx))
	require.NoError(t, d.ScrollToBottom(ctx))
	h3, _ := d.ScrollHeight(ctx)
	h2 := h1 + 1
	assert.Equal(t, h2, h3, "third scroll appends nothing")
	assert.Equal(t, 3, d.Scrolls())
	assert.Len(t, d.QueryAll(nil, "a"), 2)
}

func TestPinnedHeightAndSetHTML(t *testing.T) {
	ctx := context.Background()
	d := MustParse("https://example.com/", `<html><body><a>1</a></body></html>`)
	d.SetHeight(1000)
	h, _ := d.ScrollHeight(ctx)
	assert.Equal(t, 1000, h)

	require.NoError(t, d.SetHTML(`<html><body><a>1</a><a>2</a></body></html>`))
	assert.Len(t, d.QueryAll(nil, "a"), 2)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := d.ScrollHeight(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForeignElementsAreIgnored(t *testing.T) {
	a := MustParse("https://example.com/", `<html><body><div id="x"><a>1</a></div></body></html>`)
	b := MustParse("https://example.com/", `<html><body><div id="x"><a>1</a></div></body></html>`)
	scope := dom.Query(a, nil, "#x")
	assert.Empty(t, b.QueryAll(scope, "a"))
	assert.False(t, b.Matches(scope, "div"))
}
