// Package dom is the narrow view of a page that scanners depend on.
//
// A Document answers selector queries scoped to an element and exposes
// the two page actions the scroll driver needs. Elements expose attributes,
// text, layout geometry and their parent. Implementations are the
// synthetic htmldom package and the live browser package.
package dom

import (
	"context"
	"strings"
)

// Box is an element's layout box in document coordinates
type Box struct {
	Top    float64
	Width  float64
	Height float64
}

// Empty reports a zero-area box, which is how hidden elements lay out
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

type Element interface {
	Tag() string
	ID() string
	Attr(name string) (string, bool)
	// Text is the element's text content with whitespace collapsed
	Text() string
	Box() Box
	// Parent returns nil at the document root
	Parent() Element
}

type Document interface {
	URL() string
	Title() string
	// QueryAll returns the elements under scope (the whole document when
	// scope is nil) matching selector, in document order. An invalid
	// selector yields no elements.
	QueryAll(scope Element, selector string) []Element
	Matches(el Element, selector string) bool
	ScrollHeight(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error
}

// Refresher is implemented by documents that mirror a live page and must
// be re-read before each scan.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Query returns the first match or nil
func Query(doc Document, scope Element, selector string) Element {
	if els := doc.QueryAll(scope, selector); len(els) > 0 {
		return els[0]
	}
	return nil
}

// Closest returns el or its nearest ancestor matching selector
func Closest(doc Document, el Element, selector string) Element {
	for cur := el; cur != nil; cur = cur.Parent() {
		if doc.Matches(cur, selector) {
			return cur
		}
	}
	return nil
}

// Visible reports a non-zero layout box
func Visible(el Element) bool {
	return el != nil && !el.Box().Empty()
}

// AttrOr returns the attribute value or "" when absent
func AttrOr(el Element, name string) string {
	v, _ := el.Attr(name)
	return v
}

// HasAncestor reports whether any ancestor of el (not el itself)
// satisfies pred.
func HasAncestor(el Element, pred func(Element) bool) bool {
	for cur := el.Parent(); cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return true
		}
	}
	return false
}

// CollapseSpace trims s and folds runs of whitespace into single spaces
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
