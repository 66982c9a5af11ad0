// Package store keeps the named collections of accepted bookmarks, per
// platform, and writes the whole state to a Backend after every change.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/models"
)

// RecordKey is the key the state is persisted under
const RecordKey = "allCollections"

var ErrCollectionNotFound = errors.New(errors.ErrorTypeNotFound, "collection not found")

// Snapshot is a deep copy of the store. Order lists each platform's
// collection names newest first.
type Snapshot struct {
	Collections map[models.Platform]map[string][]models.Bookmark     `json:"collections"`
	Meta        map[models.Platform]map[string]models.CollectionMeta `json:"meta"`
	Order       map[models.Platform][]string                         `json:"order,omitempty"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Collections: make(map[models.Platform]map[string][]models.Bookmark),
		Meta:        make(map[models.Platform]map[string]models.CollectionMeta),
		Order:       make(map[models.Platform][]string),
	}
}

// Platforms returns the platforms holding at least one collection, in
// the canonical platform order followed by any others sorted.
func (s Snapshot) Platforms() []models.Platform {
	var out []models.Platform
	known := make(map[models.Platform]bool)
	for _, p := range models.Platforms {
		known[p] = true
		if len(s.Collections[p]) > 0 {
			out = append(out, p)
		}
	}
	var extra []models.Platform
	for p, cols := range s.Collections {
		if !known[p] && len(cols) > 0 {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Names returns the collection names of p, newest first
func (s Snapshot) Names(p models.Platform) []string {
	return append([]string(nil), s.Order[p]...)
}

// Bookmarks is the total number of bookmarks across all collections
func (s Snapshot) Bookmarks() int {
	n := 0
	for _, cols := range s.Collections {
		for _, bs := range cols {
			n += len(bs)
		}
	}
	return n
}

func (s Snapshot) clone() Snapshot {
	out := emptySnapshot()
	for p, cols := range s.Collections {
		m := make(map[string][]models.Bookmark, len(cols))
		for name, bs := range cols {
			m[name] = append([]models.Bookmark{}, bs...)
		}
		out.Collections[p] = m
	}
	for p, metas := range s.Meta {
		m := make(map[string]models.CollectionMeta, len(metas))
		for name, meta := range metas {
			m[name] = meta
		}
		out.Meta[p] = m
	}
	for p, names := range s.Order {
		out.Order[p] = append([]string(nil), names...)
	}
	return out
}

// normalize repairs a loaded record: missing maps are created, order
// entries without a collection are dropped and collections missing from
// the order (older records carry none) are appended sorted. Every
// collection ends up with meta, meta without a collection is dropped and
// bookmarks without an ID get one from newID.
func (s *Snapshot) normalize(newID func() string) {
	if s.Collections == nil {
		s.Collections = make(map[models.Platform]map[string][]models.Bookmark)
	}
	if s.Meta == nil {
		s.Meta = make(map[models.Platform]map[string]models.CollectionMeta)
	}
	if s.Order == nil {
		s.Order = make(map[models.Platform][]string)
	}
	for p, cols := range s.Collections {
		if len(cols) == 0 {
			delete(s.Collections, p)
			continue
		}
		listed := make(map[string]bool, len(cols))
		var names []string
		for _, name := range s.Order[p] {
			if _, ok := cols[name]; ok && !listed[name] {
				listed[name] = true
				names = append(names, name)
			}
		}
		var missing []string
		for name := range cols {
			if !listed[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		s.Order[p] = append(names, missing...)

		if s.Meta[p] == nil {
			s.Meta[p] = make(map[string]models.CollectionMeta)
		}
		for name, bookmarks := range cols {
			if _, ok := s.Meta[p][name]; !ok {
				s.Meta[p][name] = defaultMeta(name)
			}
			if bookmarks == nil {
				cols[name] = []models.Bookmark{}
			}
			for i := range bookmarks {
				b := &bookmarks[i]
				if b.ID == "" {
					b.ID = newID()
				}
				if b.Platform == "" {
					b.Platform = p
				}
				if b.Collection == "" {
					b.Collection = name
				}
			}
		}
	}
	for p := range s.Order {
		if _, ok := s.Collections[p]; !ok {
			delete(s.Order, p)
		}
	}
	for p, metas := range s.Meta {
		for name := range metas {
			if _, ok := s.Collections[p][name]; !ok {
				delete(metas, name)
			}
		}
		if len(metas) == 0 {
			delete(s.Meta, p)
		}
	}
}

// Options configures a Store
type Options struct {
	Logger logger.Logger
	// NewID generates bookmark IDs; uuid.NewString by default
	NewID func() string
}

// Store is safe for concurrent use. Every mutation is computed from the
// current state under one lock and persisted before the lock is released.
type Store struct {
	backend Backend
	log     logger.Logger
	newID   func() string

	mu       sync.RWMutex
	state    Snapshot
	failures int
	watchers []func(Snapshot)
}

func New(backend Backend, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{
		backend: backend,
		log:     opts.Logger.WithField("component", "store"),
		newID:   opts.NewID,
		state:   emptySnapshot(),
	}
}

// Load replaces the in-memory state with the persisted record. A backend
// without a record leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrorTypePersistence, "loading collections", err)
	}
	state := emptySnapshot()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state); err != nil {
			return errors.Wrap(errors.ErrorTypePersistence, "decoding collections", err)
		}
		state.normalize(s.newID)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.log.InfoWithFields("collections loaded", map[string]interface{}{
		"platforms": len(state.Collections),
		"bookmarks": state.Bookmarks(),
	})
	return nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// OnChange registers fn to receive a snapshot after every mutation. fn
// runs on the mutating goroutine and must not call back into the store's
// mutators.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// PersistFailures counts the writes the backend rejected
func (s *Store) PersistFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}

// persistLocked writes the whole state and returns the watchers to notify
// along with the snapshot they get. A failed write is logged and counted;
// the in-memory state stays as it is.
func (s *Store) persistLocked() ([]func(Snapshot), Snapshot) {
	data, err := json.Marshal(s.state)
	if err == nil {
		err = s.backend.Save(context.Background(), data)
	}
	if err != nil {
		s.failures++
		s.log.WithError(err).ErrorWithFields("persisting collections", map[string]interface{}{
			"failures": s.failures,
		})
	}
	if len(s.watchers) == 0 {
		return nil, Snapshot{}
	}
	return append([]func(Snapshot){}, s.watchers...), s.state.clone()
}

func notify(watchers []func(Snapshot), snap Snapshot) {
	for _, fn := range watchers {
		fn(snap)
	}
}

func defaultMeta(name string) models.CollectionMeta {
	return models.CollectionMeta{Type: models.CollectionProfile, Handle: name}
}

// createLocked adds an empty collection at the front of p's order
func (s *Store) createLocked(p models.Platform, name string) {
	if s.state.Collections[p] == nil {
		s.state.Collections[p] = make(map[string][]models.Bookmark)
	}
	s.state.Collections[p][name] = []models.Bookmark{}
	s.state.Order[p] = append([]string{name}, s.state.Order[p]...)
}

func (s *Store) setMetaLocked(p models.Platform, name string, meta models.CollectionMeta) {
	if s.state.Meta[p] == nil {
		s.state.Meta[p] = make(map[string]models.CollectionMeta)
	}
	s.state.Meta[p][name] = meta
}

func (s *Store) exists(p models.Platform, name string) bool {
	_, ok := s.state.Collections[p][name]
	return ok
}

// EnsureCollection creates the collection at the front of p's order when
// it is missing. meta replaces the existing meta in place; without it a
// new collection gets {profile, name}.
func (s *Store) EnsureCollection(p models.Platform, name string, meta *models.CollectionMeta) error {
	if name == "" {
		return errors.New(errors.ErrorTypeInvalidInput, "collection name is required")
	}
	s.mu.Lock()
	created := !s.exists(p, name)
	if created {
		s.createLocked(p, name)
	}
	switch {
	case meta != nil:
		s.setMetaLocked(p, name, *meta)
	case created:
		if _, ok := s.state.Meta[p][name]; !ok {
			s.setMetaLocked(p, name, defaultMeta(name))
		}
	}
	watchers, snap := s.persistLocked()
	s.mu.Unlock()

	if created {
		s.log.InfoWithFields("collection created", map[string]interface{}{"platform": p, "collection": name})
	}
	notify(watchers, snap)
	return nil
}

// AddBookmarks appends the urls not already in the collection and returns
// the bookmarks it created. A missing collection is created first. When
// nothing is new the store is not written.
func (s *Store) AddBookmarks(p models.Platform, name string, urls []string) []models.Bookmark {
	if name == "" || len(urls) == 0 {
		return nil
	}
	s.mu.Lock()
	current := s.state.Collections[p][name]
	have := make(map[string]bool, len(current)+len(urls))
	for _, b := range current {
		have[b.URL] = true
	}
	var added []models.Bookmark
	for _, u := range urls {
		if u == "" || have[u] {
			continue
		}
		have[u] = true
		added = append(added, models.Bookmark{ID: s.newID(), Platform: p, URL: u, Collection: name})
	}
	if len(added) == 0 {
		s.mu.Unlock()
		return nil
	}

	if !s.exists(p, name) {
		s.createLocked(p, name)
		if _, ok := s.state.Meta[p][name]; !ok {
			s.setMetaLocked(p, name, defaultMeta(name))
		}
	}
	s.state.Collections[p][name] = append(s.state.Collections[p][name], added...)
	total := len(s.state.Collections[p][name])
	watchers, snap := s.persistLocked()
	s.mu.Unlock()

	logger.LogNewItems(s.log.WithField("collection", name), string(p), len(added), total)
	notify(watchers, snap)
	return append([]models.Bookmark(nil), added...)
}

// removeLocked drops name from p, removing the platform keys once p has
// no collections left.
func (s *Store) removeLocked(p models.Platform, name string) {
	delete(s.state.Collections[p], name)
	delete(s.state.Meta[p], name)
	order := s.state.Order[p][:0:0]
	for _, n := range s.state.Order[p] {
		if n != name {
			order = append(order, n)
		}
	}
	s.state.Order[p] = order
	if len(s.state.Collections[p]) == 0 {
		delete(s.state.Collections, p)
		delete(s.state.Meta, p)
		delete(s.state.Order, p)
	}
}

// DeleteCollection removes the collection and its meta
func (s *Store) DeleteCollection(p models.Platform, name string) error {
	s.mu.Lock()
	if !s.exists(p, name) {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", p, name, ErrCollectionNotFound)
	}
	s.removeLocked(p, name)
	watchers, snap := s.persistLocked()
	s.mu.Unlock()

	s.log.InfoWithFields("collection deleted", map[string]interface{}{"platform": p, "collection": name})
	notify(watchers, snap)
	return nil
}

// RenameCollection moves a collection and its meta to newName at the front
// of the order, rewriting every bookmark's collection. An existing newName
// absorbs the moved bookmarks whose URLs it does not already hold.
func (s *Store) RenameCollection(p models.Platform, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if newName == "" {
		return errors.New(errors.ErrorTypeInvalidInput, "new collection name is required")
	}

	s.mu.Lock()
	if !s.exists(p, oldName) {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", p, oldName, ErrCollectionNotFound)
	}

	moved := s.state.Collections[p][oldName]
	meta, hasMeta := s.state.Meta[p][oldName]
	target := append([]models.Bookmark{}, s.state.Collections[p][newName]...)
	merged := len(target) > 0 || s.exists(p, newName)
	have := make(map[string]bool, len(target))
	for _, b := range target {
		have[b.URL] = true
	}
	for _, b := range moved {
		if have[b.URL] {
			continue
		}
		have[b.URL] = true
		b.Collection = newName
		target = append(target, b)
	}

	s.removeLocked(p, oldName)
	if s.exists(p, newName) {
		s.removeLocked(p, newName)
	}
	s.createLocked(p, newName)
	s.state.Collections[p][newName] = target
	if !hasMeta {
		meta = defaultMeta(newName)
	}
	s.setMetaLocked(p, newName, meta)
	watchers, snap := s.persistLocked()
	s.mu.Unlock()

	s.log.InfoWithFields("collection renamed", map[string]interface{}{
		"platform": p,
		"from":     oldName,
		"to":       newName,
		"merged":   merged,
	})
	notify(watchers, snap)
	return nil
}

// DeleteAll empties the store
func (s *Store) DeleteAll() {
	s.mu.Lock()
	s.state = emptySnapshot()
	watchers, snap := s.persistLocked()
	s.mu.Unlock()

	s.log.Info("all collections deleted")
	notify(watchers, snap)
}

// GetAllCollections returns a deep copy of the whole store
func (s *Store) GetAllCollections() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Meta returns the meta of a collection
func (s *Store) Meta(p models.Platform, name string) (models.CollectionMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.Meta[p][name]
	return m, ok
}

// Collections returns p's collection names, newest first
func (s *Store) Collections(p models.Platform) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.state.Order[p]...)
}

// Bookmarks returns a copy of one collection's bookmarks
func (s *Store) Bookmarks(p models.Platform, name string) []models.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Bookmark(nil), s.state.Collections[p][name]...)
}
