package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom/htmldom"
	"linkstash/pkg/errors"
	"linkstash/pkg/messenger"
	"linkstash/pkg/models"
	"linkstash/pkg/store"
)

const tiktokGrid = `<html><body>
	<a href="https://www.tiktok.com/@bob/video/111">one</a>
	<a href="https://www.tiktok.com/@bob/video/222">two</a>
	<a href="https://www.tiktok.com/@bob/video/111">one again</a>
	<a href="https://www.tiktok.com/@bob/photo/333">photo</a>
	<a href="https://www.tiktok.com/@bob">profile</a>
</body></html>`

func urlsOf(st *store.Store, name string) []string {
	var out []string
	for _, b := range st.Bookmarks(models.PlatformTikTok, name) {
		out = append(out, b.URL)
	}
	return out
}

func TestBookmarkSingle(t *testing.T) {
	_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@alice/video/123?is_from_webapp=1", `<html><body></body></html>`))
	st, _ := newStore(t)
	c := New(pipe, st, Options{})

	sum, err := c.BookmarkSingle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, classify.TikTokSingle.Name, sum.Collection)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, []string{"https://www.tiktok.com/@alice/video/123"}, urlsOf(st, "single_bookmarks"))

	meta, ok := st.Meta(models.PlatformTikTok, "single_bookmarks")
	require.True(t, ok)
	assert.Equal(t, models.CollectionBookmarks, meta.Type)

	// the same video twice is stored once
	sum, err = c.BookmarkSingle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Added)
	assert.Equal(t, 1, sum.Total)
}

func TestBookmarkSingleRejectsNonVideoPage(t *testing.T) {
	_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@alice", `<html><body></body></html>`))
	st, backend := newStore(t)

	_, err := New(pipe, st, Options{}).BookmarkSingle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
	assert.Zero(t, backend.Saves())
}

func TestCollectAllOnPage(t *testing.T) {
	_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@bob", tiktokGrid))
	st, _ := newStore(t)

	sum, err := New(pipe, st, Options{}).CollectAllOnPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all_tiktok_links", sum.Collection)
	assert.Equal(t, 2, sum.Added)
	assert.Equal(t, []string{
		"https://www.tiktok.com/@bob/video/111",
		"https://www.tiktok.com/@bob/video/222",
	}, urlsOf(st, "all_tiktok_links"))
}

func TestCollectAllOnPageNeedsTikTok(t *testing.T) {
	_, pipe := page(t, instagramFeed(t, "alice", 0))
	st, _ := newStore(t)

	_, err := New(pipe, st, Options{}).CollectAllOnPage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
	assert.Empty(t, st.Collections(models.PlatformTikTok))
}

func TestSelection(t *testing.T) {
	_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@bob", tiktokGrid))
	st, _ := newStore(t)
	c := New(pipe, st, Options{})
	ctx := context.Background()

	sel, err := c.Select(ctx, Request{Name: "picked"})
	require.NoError(t, err)
	assert.Equal(t, "picked", sel.Collection())

	candidates, err := sel.Candidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.tiktok.com/@bob/video/111",
		"https://www.tiktok.com/@bob/video/222",
	}, candidates)

	on, err := sel.Toggle(ctx, candidates[1])
	require.NoError(t, err)
	assert.True(t, on)
	on, err = sel.Toggle(ctx, candidates[0])
	require.NoError(t, err)
	assert.True(t, on)
	on, err = sel.Toggle(ctx, candidates[0])
	require.NoError(t, err)
	assert.False(t, on)

	_, err = sel.Toggle(ctx, "https://www.tiktok.com/@bob")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	sum, err := sel.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, []string{"https://www.tiktok.com/@bob/video/222"}, urlsOf(st, "picked"))

	// after validation the page is out of selection mode
	_, err = sel.Toggle(ctx, candidates[0])
	assert.Error(t, err)
}

func TestSelectionCancelStoresNothing(t *testing.T) {
	_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@bob", tiktokGrid))
	st, _ := newStore(t)
	ctx := context.Background()

	sel, err := New(pipe, st, Options{}).Select(ctx, Request{Name: "picked"})
	require.NoError(t, err)
	_, err = sel.Toggle(ctx, "https://www.tiktok.com/@bob/video/111")
	require.NoError(t, err)
	require.NoError(t, sel.Cancel(ctx))

	assert.Empty(t, st.Bookmarks(models.PlatformTikTok, "picked"))
}

func TestBatchWithAction(t *testing.T) {
	st, _ := newStore(t)
	pages := map[string]*messenger.Pipe{}
	for _, id := range []string{"1", "2"} {
		_, pipe := page(t, htmldom.MustParse("https://www.tiktok.com/@alice/video/"+id, `<html><body></body></html>`))
		pages["https://vm.tiktok.com/short"+id] = pipe
	}
	open := func(ctx context.Context, url string) (messenger.Conn, func(), error) {
		return pages[url], func() {}, nil
	}

	results := Batch(context.Background(), []string{"https://vm.tiktok.com/short1", "https://vm.tiktok.com/short2"}, open, st, BatchOptions{
		Workers: 2,
		Action: func(ctx context.Context, c *Collector) (Summary, error) {
			return c.BookmarkSingle(ctx)
		},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, "single_bookmarks", r.Value.Collection)
	}
	assert.ElementsMatch(t, []string{
		"https://www.tiktok.com/@alice/video/1",
		"https://www.tiktok.com/@alice/video/2",
	}, urlsOf(st, "single_bookmarks"))
}
