// Package catalog implements the persistent keyed document store: named
// collections of JSON documents with equality matching, a TCP server
// exposing the five store operations, and the client the other daemons use
// to reach it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CollectionNames are the fixed collections of the platform.
var CollectionNames = []string{"User", "Game", "Version", "Room", "Review"}

// Store errors. ErrPersist wraps a failed file write; the in-memory
// mutation it reports on has already been applied and stays applied.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("not found")
	ErrPersist           = errors.New("persisting collection")
)

// Store holds all collections. Each collection has its own mutex held for
// the full duration of a scan and, for mutations, the file rewrite.
type Store struct {
	dataDir     string
	collections map[string]*collection
}

type collection struct {
	mu   sync.Mutex
	name string
	path string
	docs map[string]map[string]any
}

// Open loads every collection file under dataDir, creating the directory if
// needed. Missing files mean empty collections.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	s := &Store{
		dataDir:     dataDir,
		collections: make(map[string]*collection, len(CollectionNames)),
	}
	for _, name := range CollectionNames {
		c := &collection{
			name: name,
			path: filepath.Join(dataDir, name+".json"),
			docs: make(map[string]map[string]any),
		}
		if err := c.load(); err != nil {
			return nil, fmt.Errorf("loading collection %s: %w", name, err)
		}
		if len(c.docs) > 0 {
			slog.Info("collection loaded", "collection", name, "records", len(c.docs))
		}
		s.collections[name] = c
	}
	return s, nil
}

func (c *collection) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", c.path, err)
	}
	if err := json.Unmarshal(data, &c.docs); err != nil {
		return fmt.Errorf("parsing %s: %w", c.path, err)
	}
	return nil
}

// save rewrites the whole collection file, write-temp-then-rename so a
// crash mid-write never corrupts the previous state.
func (c *collection) save() error {
	data, err := json.MarshalIndent(c.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrPersist, c.name, err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w %s: %v", ErrPersist, c.name, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("%w %s: %v", ErrPersist, c.name, err)
	}
	return nil
}

func (s *Store) collection(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, ErrUnknownCollection
	}
	return c, nil
}

// Insert stores doc, assigning _id and created_at when absent, and persists
// the collection. On a persistence failure the document is kept in memory
// and the error is returned.
func (s *Store) Insert(name string, doc map[string]any) (string, error) {
	c, err := s.collection(name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	doc["_id"] = id
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = time.Now().Format(time.RFC3339)
	}
	c.docs[id] = cloneDoc(doc)

	return id, c.save()
}

// Find returns every document matching the equality query (AND semantics).
// An empty query matches everything. Results are deep copies: callers
// serialize them outside the collection lock.
func (s *Store) Find(name string, query map[string]any) ([]map[string]any, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	results := []map[string]any{}
	for _, doc := range c.docs {
		if matches(doc, query) {
			results = append(results, cloneDoc(doc))
		}
	}
	return results, nil
}

// FindOne returns a deep copy of the first matching document or ErrNotFound.
func (s *Store) FindOne(name string, query map[string]any) (map[string]any, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if matches(doc, query) {
			return cloneDoc(doc), nil
		}
	}
	return nil, ErrNotFound
}

// Update merges update into every matching document, stamps updated_at, and
// persists when anything changed. Returns the match count.
func (s *Store) Update(name string, query, update map[string]any) (int, error) {
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, doc := range c.docs {
		if !matches(doc, query) {
			continue
		}
		for k, v := range update {
			doc[k] = cloneValue(v)
		}
		doc["updated_at"] = time.Now().Format(time.RFC3339)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return count, c.save()
}

// Delete removes every matching document and persists when anything was
// removed. Returns the removal count.
func (s *Store) Delete(name string, query map[string]any) (int, error) {
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for id, doc := range c.docs {
		if matches(doc, query) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(c.docs, id)
	}
	if len(removed) == 0 {
		return 0, nil
	}
	return len(removed), c.save()
}

// cloneDoc deep-copies a document so a stored map is never shared with code
// running outside the collection lock.
func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneDoc(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// matches checks equality of every query pair against the document.
func matches(doc, query map[string]any) bool {
	for key, want := range query {
		got, ok := doc[key]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue compares two JSON scalar values, normalizing numbers so that
// an in-process int query matches a float64 decoded from the wire or disk.
func equalValue(a, b any) bool {
	if na, ok := asFloat(a); ok {
		nb, ok := asFloat(b)
		return ok && na == nb
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
