package browser

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-rod/rod"

	"linkstash/pkg/dom"
	"linkstash/pkg/dom/htmldom"
	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
)

// snapshotJS clones the document and stamps every element of the clone
// with its live layout box, so the copy carries geometry without the
// page itself being touched.
const snapshotJS = `() => {
	const live = document.querySelectorAll('*');
	const clone = document.documentElement.cloneNode(true);
	const copies = [clone, ...clone.querySelectorAll('*')];
	const sy = window.scrollY || 0;
	for (let i = 0; i < live.length && i < copies.length; i++) {
		const r = live[i].getBoundingClientRect();
		const c = copies[i];
		c.setAttribute('` + htmldom.AttrTop + `', String(Math.round(r.top + sy)));
		c.setAttribute('` + htmldom.AttrWidth + `', String(Math.round(r.width)));
		c.setAttribute('` + htmldom.AttrHeight + `', String(Math.round(r.height)));
	}
	return JSON.stringify({url: location.href, html: clone.outerHTML});
}`

const scrollHeightJS = `() => (document.body || document.documentElement).scrollHeight`

const scrollToBottomJS = `() => window.scrollTo(0, (document.body || document.documentElement).scrollHeight)`

// snapshot is what snapshotJS returns
type snapshot struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// Page is a live tab seen through its latest snapshot
type Page struct {
	page *rod.Page
	log  logger.Logger

	mu   sync.RWMutex
	snap *htmldom.Document
}

var (
	_ dom.Document  = (*Page)(nil)
	_ dom.Refresher = (*Page)(nil)
)

func newPage(rp *rod.Page, log logger.Logger) *Page {
	return &Page{page: rp, log: log, snap: htmldom.MustParse("", "")}
}

// Refresh re-reads the live DOM
func (p *Page) Refresh(ctx context.Context) error {
	res, err := p.page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBrowser, "reading page", err)
	}
	return p.apply(res.Value.Str())
}

// apply replaces the snapshot with the JSON produced by snapshotJS
func (p *Page) apply(raw string) error {
	var s snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return errors.Wrap(errors.ErrorTypeProtocol, "decoding page snapshot", err)
	}
	doc, err := htmldom.ParseString(s.URL, s.HTML)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBrowser, "parsing page snapshot", err)
	}
	p.mu.Lock()
	p.snap = doc
	p.mu.Unlock()
	return nil
}

func (p *Page) current() *htmldom.Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Page) URL() string   { return p.current().URL() }
func (p *Page) Title() string { return p.current().Title() }

// QueryAll runs against the latest snapshot. A scope taken from an older
// snapshot matches nothing.
func (p *Page) QueryAll(scope dom.Element, selector string) []dom.Element {
	return p.current().QueryAll(scope, selector)
}

func (p *Page) Matches(el dom.Element, selector string) bool {
	return p.current().Matches(el, selector)
}

func (p *Page) ScrollHeight(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(scrollHeightJS)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeBrowser, "reading scroll height", err)
	}
	return res.Value.Int(), nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(scrollToBottomJS); err != nil {
		return errors.Wrap(errors.ErrorTypeBrowser, "scrolling", err)
	}
	return nil
}

// Close closes the tab
func (p *Page) Close() error {
	return p.page.Close()
}
