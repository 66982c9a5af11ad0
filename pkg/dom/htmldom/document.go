// Package htmldom is a dom.Document over a parsed HTML tree.
//
// It backs unit tests with synthetic fixtures and the browser package with
// snapshots of a live page. Layout comes from data-ls-top, data-ls-width
// and data-ls-height attributes; an element without them gets a 1x1 box
// whose top is its document-order index. Elements that are hidden, or
// styled display:none, or inside such an element, get an empty box.
package htmldom

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"linkstash/pkg/dom"
)

const (
	AttrTop    = "data-ls-top"
	AttrWidth  = "data-ls-width"
	AttrHeight = "data-ls-height"
)

// ScrollHook runs on every ScrollToBottom with the 1-based scroll count.
// Fixtures use it to append content the way an infinite feed does.
type ScrollHook func(d *Document, scrolls int)

type Document struct {
	mu       sync.RWMutex
	url      string
	root     *html.Node
	order    map[*html.Node]int
	height   int
	fixed    bool
	scrolls  int
	onScroll ScrollHook
}

// Parse reads an HTML document served at pageURL
func Parse(pageURL string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{url: pageURL}
	d.setRoot(root)
	return d, nil
}

// ParseString is Parse for an in-memory string
func ParseString(pageURL, src string) (*Document, error) {
	return Parse(pageURL, strings.NewReader(src))
}

// MustParse panics on error; for fixtures only
func MustParse(pageURL, src string) *Document {
	d, err := ParseString(pageURL, src)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) setRoot(root *html.Node) {
	d.root = root
	d.order = make(map[*html.Node]int)
	i := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			d.order[n] = i
			i++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// SetHTML replaces the whole tree, simulating a DOM mutation
func (d *Document) SetHTML(src string) error {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setRoot(root)
	return nil
}

// AppendBody parses fragment and appends it to <body>
func (d *Document) AppendBody(fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := findFirst(d.root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "body" })
	if body == nil {
		body = d.root
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	d.setRoot(d.root)
	return nil
}

// SetURL changes the document URL, as an in-page navigation would
func (d *Document) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

// SetHeight pins ScrollHeight to h instead of deriving it from content
func (d *Document) SetHeight(h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.height = h
	d.fixed = true
}

// OnScroll installs a hook called on every ScrollToBottom
func (d *Document) OnScroll(hook ScrollHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onScroll = hook
}

// Scrolls returns how many times ScrollToBottom ran
func (d *Document) Scrolls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scrolls
}

func (d *Document) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t := findFirst(d.root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "title" })
	if t == nil {
		return ""
	}
	return dom.CollapseSpace(textOf(t))
}

// ScrollHeight is the pinned height, or the element count otherwise, so
// appended content grows it.
func (d *Document) ScrollHeight(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fixed {
		return d.height, nil
	}
	return len(d.order), nil
}

func (d *Document) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.scrolls++
	n, hook := d.scrolls, d.onScroll
	d.mu.Unlock()

	if hook != nil {
		hook(d, n)
	}
	return nil
}

func (d *Document) QueryAll(scope dom.Element, selector string) []dom.Element {
	sel, err := Compile(selector)
	if err != nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	start := d.root
	if scope != nil {
		e, ok := scope.(*Element)
		if !ok || e.doc != d {
			return nil
		}
		start = e.node
	}

	var out []dom.Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && sel.Match(c) {
				out = append(out, &Element{doc: d, node: c})
			}
			walk(c)
		}
	}
	walk(start)
	return out
}

func (d *Document) Matches(el dom.Element, selector string) bool {
	e, ok := el.(*Element)
	if !ok || e.doc != d {
		return false
	}
	sel, err := Compile(selector)
	if err != nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sel.Match(e.node)
}

// Element wraps one element node of a Document
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) Tag() string { return e.node.Data }

func (e *Element) ID() string { return attr(e.node, "id") }

func (e *Element) Attr(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return lookup(e.node, strings.ToLower(name))
}

func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return dom.CollapseSpace(textOf(e.node))
}

func (e *Element) Parent() dom.Element {
	p := elementParent(e.node)
	if p == nil {
		return nil
	}
	return &Element{doc: e.doc, node: p}
}

func (e *Element) Box() dom.Box {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()

	for n := e.node; n != nil; n = elementParent(n) {
		if hidden(n) {
			return dom.Box{Top: e.defaultTop()}
		}
	}

	b := dom.Box{Top: e.defaultTop(), Width: 1, Height: 1}
	if v, ok := number(e.node, AttrTop); ok {
		b.Top = v
	}
	if v, ok := number(e.node, AttrWidth); ok {
		b.Width = v
	}
	if v, ok := number(e.node, AttrHeight); ok {
		b.Height = v
	}
	return b
}

func (e *Element) defaultTop() float64 {
	return float64(e.doc.order[e.node])
}

func hidden(n *html.Node) bool {
	if _, ok := lookup(n, "hidden"); ok {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none")
}

func number(n *html.Node, key string) (float64, bool) {
	v, ok := lookup(n, key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}
