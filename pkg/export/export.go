// Package export writes collections out as CSV or JSON for use outside
// linkstash.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linkstash/pkg/classify"
	"linkstash/pkg/errors"
	"linkstash/pkg/models"
	"linkstash/pkg/store"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Header is the CSV header row
var Header = []string{"Platform", "Type", "Handle", "Media", "link"}

// Filter narrows an export. Empty fields match everything.
type Filter struct {
	Platforms   []models.Platform
	Collections []string
}

func (f Filter) platform(p models.Platform) bool {
	if len(f.Platforms) == 0 {
		return true
	}
	for _, want := range f.Platforms {
		if want == p {
			return true
		}
	}
	return false
}

func (f Filter) collection(name string) bool {
	if len(f.Collections) == 0 {
		return true
	}
	for _, want := range f.Collections {
		if want == name {
			return true
		}
	}
	return false
}

// Item is one exported bookmark
type Item struct {
	URL       string           `json:"url"`
	MediaType models.MediaKind `json:"mediaType"`
}

// Collection is one exported collection
type Collection struct {
	Platform       models.Platform       `json:"platform"`
	CollectionName string                `json:"collectionName"`
	Meta           models.CollectionMeta `json:"meta"`
	Items          []Item                `json:"items"`
}

// Collections flattens a snapshot into export order: platforms in their
// canonical order, collections newest first, bookmarks as stored.
func Collections(snap store.Snapshot, f Filter) []Collection {
	var out []Collection
	for _, p := range snap.Platforms() {
		if !f.platform(p) {
			continue
		}
		for _, name := range snap.Names(p) {
			if !f.collection(name) {
				continue
			}
			meta, ok := snap.Meta[p][name]
			if !ok {
				meta = models.CollectionMeta{Type: models.CollectionProfile, Handle: name}
			}
			items := make([]Item, 0, len(snap.Collections[p][name]))
			for _, b := range snap.Collections[p][name] {
				items = append(items, Item{URL: b.URL, MediaType: classify.MediaKindOf(p, b.URL)})
			}
			out = append(out, Collection{Platform: p, CollectionName: name, Meta: meta, Items: items})
		}
	}
	return out
}

// WriteCSV writes one row per bookmark under Header
func WriteCSV(w io.Writer, cols []Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range cols {
		for _, it := range c.Items {
			row := []string{string(c.Platform), string(c.Meta.Type), c.Meta.Handle, string(it.MediaType), it.URL}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, cols []Collection) error {
	if cols == nil {
		cols = []Collection{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cols)
}

// Encode writes cols in the given format
func Encode(w io.Writer, format string, cols []Collection) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, cols)
	case FormatJSON:
		return WriteJSON(w, cols)
	}
	return errors.New(errors.ErrorTypeInvalidInput, fmt.Sprintf("unknown export format %q", format))
}

// DefaultName is the file name used when the caller gives a directory
func DefaultName(format string, now time.Time) string {
	return fmt.Sprintf("linkstash-%s.%s", now.Format("20060102-150405"), strings.ToLower(format))
}

// Write exports the filtered snapshot to path through a temporary file
// and a rename. It returns the number of bookmarks written.
func Write(path, format string, snap store.Snapshot, f Filter) (int, error) {
	cols := Collections(snap, f)
	count := 0
	for _, c := range cols {
		count += len(c.Items)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = Encode(out, format, cols)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to write export: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return count, nil
}
