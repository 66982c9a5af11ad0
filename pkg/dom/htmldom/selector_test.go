package htmldom

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectorFixture = `<html><body>
<div id="main" class="feed wide">
  <section data-e2e="favorites-item">
    <a id="one" href="https://www.tiktok.com/@a/video/1" class="card">one</a>
  </section>
  <div aria-label="Watch in full screen">
    <span><a id="two" href="https://www.tiktok.com/@a/photo/2">two</a></span>
  </div>
  <a id="three" href="/pin/3/" rel="nofollow noopener">three</a>
</div>
<p id="odd:id">escaped</p>
<ytd-rich-item-renderer><a id="thumbnail" href="/watch?v=abcdefghijk">x</a></ytd-rich-item-renderer>
</body></html>`

func ids(t *testing.T, d *Document, sel string) []string {
	t.Helper()
	var out []string
	for _, el := range d.QueryAll(nil, sel) {
		out = append(out, el.ID())
	}
	return out
}

func TestSelectorMatching(t *testing.T) {
	d := MustParse("https://example.com/", selectorFixture)

	tests := []struct {
		name string
		sel  string
		want []string
	}{
		{"type", "a", []string{"one", "two", "three", "thumbnail"}},
		{"id", "#two", []string{"two"}},
		{"type and id", "a#thumbnail", []string{"thumbnail"}},
		{"custom element descendant", "ytd-rich-item-renderer a", []string{"thumbnail"}},
		{"class list", "div.feed.wide", []string{"main"}},
		{"attr exists", "a[rel]", []string{"three"}},
		{"attr equals quoted", `[data-e2e="favorites-item"] a`, []string{"one"}},
		{"attr prefix", `a[href^="https://www.tiktok.com/"]`, []string{"one", "two"}},
		{"attr suffix", `a[href$="/2"]`, []string{"two"}},
		{"attr contains", `a[href*="/pin/"]`, []string{"three"}},
		{"attr word", `a[rel~=noopener]`, []string{"three"}},
		{"descendant through wrapper", `div[aria-label="Watch in full screen"] a`, []string{"two"}},
		{"child rejects grandchild", `div[aria-label="Watch in full screen"] > a`, nil},
		{"child", `span > a`, []string{"two"}},
		{"group keeps document order", "#three, #one", []string{"one", "three"}},
		{"universal child", "#main > *[id]", []string{"three"}},
		{"case-insensitive attr", `a[href*="/PIN/" i]`, []string{"three"}},
		{"negation", `#main a:not([rel])`, []string{"one", "two"}},
		{"adjacent sibling", `section + div a`, []string{"two"}},
		{"nth-child", `#main > :nth-child(3)`, []string{"three"}},
		{"escaped id", `#odd\:id`, []string{"odd:id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(t, d, tt.sel))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, sel := range []string{"", "a,", "[href", `a[href="x]`, "a:no-such-pseudo", "#", ". x"} {
		_, err := Compile(sel)
		assert.Error(t, err, sel)
	}
}

func TestCompileCaches(t *testing.T) {
	a, err := Compile("a[href]")
	require.NoError(t, err)
	b, err := Compile("a[href]")
	require.NoError(t, err)
	assert.Equal(t, reflect.ValueOf(a).Pointer(), reflect.ValueOf(b).Pointer())
}

func TestInvalidSelectorYieldsNothing(t *testing.T) {
	d := MustParse("https://example.com/", selectorFixture)
	assert.Empty(t, d.QueryAll(nil, "a:hover"))
}
