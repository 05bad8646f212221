// Package library keeps the self-learning song table: normalized song name
// to playable URL, persisted as a flat JSON object.
//
// Lookups are exact first, then the first key (in file order, then learn
// order) containing the query. That tie-break has no ranking behind it; it
// is kept as-is on purpose and callers should not rely on anything smarter.
package library

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Entry is one name -> URL pair.
type Entry struct {
	Name string
	URL  string
}

// Seed is used whenever the library file is missing or unreadable.
var Seed = []Entry{
	{Name: "starboy", URL: "https://youtu.be/34Na4j8AVgA"},
	{Name: "blinding lights", URL: "https://youtu.be/fHI8X4OXluQ"},
	{Name: "billie jean", URL: "https://youtu.be/Zi_XLOBDo_Y"},
}

// PersistError reports that a learned entry could not be written to disk.
// The entry is still present in memory.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist library %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

type Store struct {
	mu   sync.RWMutex
	path string
	keys []string
	urls map[string]string
}

// Open loads the library at path. It never fails: a missing or corrupt file
// yields the seed set.
func Open(path string) *Store {
	s := &Store{path: path}

	entries, err := load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("Library file not found, using defaults", "path", path)
		entries = Seed
	case err != nil:
		log.Warn("Could not load library, using defaults", "path", path, "err", err)
		entries = Seed
	}

	s.reset(entries)
	return s
}

// New builds an in-memory store from entries. Learned entries are persisted
// to path unless it is empty.
func New(path string, entries []Entry) *Store {
	s := &Store{path: path}
	s.reset(entries)
	return s
}

func (s *Store) reset(entries []Entry) {
	s.keys = make([]string, 0, len(entries))
	s.urls = make(map[string]string, len(entries))
	for _, e := range entries {
		s.put(normalize(e.Name), e.URL)
	}
}

func (s *Store) put(name, url string) {
	if name == "" {
		return
	}
	if _, ok := s.urls[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.urls[name] = url
}

// Find returns the URL for query: exact match, else the first key containing
// query as a substring.
func (s *Store) Find(query string) (string, bool) {
	q := normalize(query)
	if q == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if url, ok := s.urls[q]; ok {
		return url, true
	}
	for _, k := range s.keys {
		if strings.Contains(k, q) {
			return s.urls[k], true
		}
	}

	return "", false
}

// Learn records name -> url and flushes the whole table. A *PersistError is
// returned when the flush fails; the entry stays in memory regardless.
func (s *Store) Learn(name, url string) error {
	key := normalize(name)
	if key == "" {
		return errors.New("learn: empty name")
	}

	s.mu.Lock()
	s.put(key, url)
	entries := s.snapshot()
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := save(s.path, entries); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}

	log.Info("Saved to library", "name", key, "url", url)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Entries returns a copy of the table in iteration order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Entry {
	out := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Entry{Name: k, URL: s.urls[k]})
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", root.Type)
	}

	var entries []Entry
	root.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String {
			entries = append(entries, Entry{Name: k.String(), URL: v.String()})
		}
		return true
	})

	return entries, nil
}

// save writes entries as an ordered JSON object via a temp file + rename.
func save(path string, entries []Entry) error {
	doc := []byte("{}")
	for _, e := range entries {
		var err error
		doc, err = sjson.SetBytes(doc, escapeKey(e.Name), e.URL)
		if err != nil {
			return fmt.Errorf("encode %q: %w", e.Name, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(pretty.PrettyOptions(doc, &pretty.Options{Indent: "    ", Width: 80})); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// escapeKey turns a literal object key into an sjson path component.
func escapeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
