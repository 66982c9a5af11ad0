// Package scan finds newly visible items on a page.
//
// Each platform scanner queries a dom.Document with that platform's
// selectors and scopes, classifies every candidate href, and returns only
// the items its Session has not surfaced before. Sessions are monotonic:
// an item is reported at most once until the session is reset.
package scan

import (
	"sync"

	"linkstash/pkg/logger"
	"linkstash/pkg/models"
)

// Bucket names one dedup set. Most platforms have a single bucket;
// Pinterest keeps board and "more ideas" pins apart.
type Bucket string

// BucketFor is the default bucket of a platform
func BucketFor(p models.Platform) Bucket {
	return Bucket(p)
}

// PinterestBucket is the bucket for pins of the given mode
func PinterestBucket(mode models.PinterestMode) Bucket {
	if mode == models.PinterestMoreIdeas {
		return Bucket(models.PlatformPinterest) + ":" + Bucket(models.PinterestMoreIdeas)
	}
	return Bucket(models.PlatformPinterest)
}

// Session holds the dedup sets of one page context
type Session struct {
	mu    sync.Mutex
	seen  map[Bucket]map[string]struct{}
	items map[Bucket][]models.DiscoveredItem
	log   logger.Logger
}

// NewSession returns an empty session. log may be nil.
func NewSession(log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		seen:  make(map[Bucket]map[string]struct{}),
		items: make(map[Bucket][]models.DiscoveredItem),
		log:   log,
	}
}

func (s *Session) Seen(b Bucket, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[b][url]
	return ok
}

// Mark records item and reports whether it was new
func (s *Session) Mark(b Bucket, item models.DiscoveredItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.seen[b]
	if set == nil {
		set = make(map[string]struct{})
		s.seen[b] = set
	}
	if _, ok := set[item.URL]; ok {
		return false
	}
	set[item.URL] = struct{}{}
	s.items[b] = append(s.items[b], item)
	return true
}

// Items returns every item surfaced in b, in discovery order
func (s *Session) Items(b Bucket) []models.DiscoveredItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DiscoveredItem, len(s.items[b]))
	copy(out, s.items[b])
	return out
}

func (s *Session) Len(b Bucket) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen[b])
}

func (s *Session) Reset(b Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, b)
	delete(s.items, b)
}

func (s *Session) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[Bucket]map[string]struct{})
	s.items = make(map[Bucket][]models.DiscoveredItem)
}

// Result is the outcome of one incremental scan
type Result struct {
	Platform models.Platform
	Items    []models.DiscoveredItem
	// BoardExhausted is only ever set by Pinterest scans in board mode
	BoardExhausted bool
	Mode           models.PinterestMode
}

// URLs returns the canonical URLs of r.Items
func (r Result) URLs() []string {
	return URLs(r.Items)
}

func URLs(items []models.DiscoveredItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

// collect marks every candidate and keeps the new ones, deduplicating
// within the call as well.
func (s *Session) collect(b Bucket, candidates []models.DiscoveredItem) []models.DiscoveredItem {
	var fresh []models.DiscoveredItem
	for _, it := range candidates {
		if s.Mark(b, it) {
			fresh = append(fresh, it)
		}
	}
	if len(fresh) > 0 {
		s.log.DebugWithFields("new items", map[string]interface{}{
			"bucket": string(b),
			"new":    len(fresh),
			"total":  s.Len(b),
		})
	}
	return fresh
}

// unique drops repeated URLs, keeping the first occurrence
func unique(items []models.DiscoveredItem) []models.DiscoveredItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, ok := seen[it.URL]; ok {
			continue
		}
		seen[it.URL] = struct{}{}
		out = append(out, it)
	}
	return out
}
