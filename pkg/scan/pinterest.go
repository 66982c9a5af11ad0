package scan

import (
	"regexp"
	"strings"

	"linkstash/pkg/classify"
	"linkstash/pkg/dom"
	"linkstash/pkg/models"
)

var (
	boundaryPhrases = []string{"find more ideas", "more ideas", "more like this"}
	numericID       = regexp.MustCompile(`^\d+$`)
	boardIDParam    = regexp.MustCompile(`[?&]boardId=`)
)

type pin struct {
	item models.DiscoveredItem
	mode models.PinterestMode
}

func pinterestMode(m models.PinterestMode) models.PinterestMode {
	if m == models.PinterestMoreIdeas {
		return m
	}
	return models.PinterestBoard
}

// Pinterest returns the new pins that belong to mode. Pins of the other
// mode are dropped without being marked, so a later scan in that mode
// still reports them.
func Pinterest(doc dom.Document, sess *Session, mode models.PinterestMode) Result {
	mode = pinterestMode(mode)

	var wanted []models.DiscoveredItem
	moreIdeasSeen := 0
	for _, p := range pinterestCandidates(doc) {
		if p.mode == models.PinterestMoreIdeas {
			moreIdeasSeen++
		}
		if p.mode == mode {
			wanted = append(wanted, p.item)
		}
	}

	fresh := sess.collect(PinterestBucket(mode), wanted)
	return Result{
		Platform:       models.PlatformPinterest,
		Items:          fresh,
		Mode:           mode,
		BoardExhausted: mode == models.PinterestBoard && len(fresh) == 0 && moreIdeasSeen > 0,
	}
}

func pinterestCandidates(doc dom.Document) []pin {
	boundary, hasBoundary := moreIdeasBoundary(doc)

	var out []pin
	seen := make(map[string]bool)
	for _, a := range doc.QueryAll(nil, `a[href*="/pin/"]`) {
		item, ok := classify.Pinterest(resolveHref(doc, a))
		if !ok || seen[item.URL] {
			continue
		}
		seen[item.URL] = true

		mode := models.PinterestBoard
		switch {
		case isMoreIdeasMarker(a) || dom.HasAncestor(a, isMoreIdeasMarker):
			mode = models.PinterestMoreIdeas
		case hasBoundary && a.Box().Top >= boundary:
			mode = models.PinterestMoreIdeas
		}
		out = append(out, pin{item: item, mode: mode})
	}
	return out
}

func isMoreIdeasMarker(el dom.Element) bool {
	if v, ok := el.Attr("data-test-id"); ok && strings.Contains(strings.ToLower(v), "more-ideas") {
		return true
	}
	if v, ok := el.Attr("aria-label"); ok && strings.Contains(strings.ToLower(v), "more ideas") {
		return true
	}
	return false
}

// moreIdeasBoundary finds the top of the first marker element, or else of
// the first heading announcing suggested pins.
func moreIdeasBoundary(doc dom.Document) (float64, bool) {
	for _, el := range doc.QueryAll(nil, `[data-test-id], [aria-label]`) {
		if isMoreIdeasMarker(el) {
			return el.Box().Top, true
		}
	}
	for _, el := range doc.QueryAll(nil, `h1, h2, h3, h4, h5, h6, [role="heading"]`) {
		text := strings.ToLower(el.Text())
		for _, phrase := range boundaryPhrases {
			if strings.Contains(text, phrase) {
				return el.Box().Top, true
			}
		}
	}
	return 0, false
}

// PinterestSection returns the label of the selected feed tab on the
// Pinterest home page, or "" anywhere else.
func PinterestSection(doc dom.Document) string {
	if !classify.IsPinterestRoot(doc.URL()) {
		return ""
	}
	tabs := doc.QueryAll(nil, `a[aria-current="page"]`)
	if len(tabs) == 0 {
		return ""
	}
	chosen := tabs[0]
	for _, a := range tabs {
		id := a.ID()
		if id == "homefeed" || numericID.MatchString(id) || boardIDParam.MatchString(dom.AttrOr(a, "href")) {
			chosen = a
			break
		}
	}
	return chosen.Text()
}
