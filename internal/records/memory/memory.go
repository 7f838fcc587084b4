// Package memory is an in-process record store, seeded from JSON fixtures
// for local development and tests.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"renohub/internal/records"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string][]records.Record
}

var (
	_ records.Store  = (*Store)(nil)
	_ records.Writer = (*Store)(nil)
)

func New(collections map[string][]records.Record) *Store {
	s := &Store{collections: make(map[string][]records.Record, len(collections))}
	for id, recs := range collections {
		s.collections[id] = append([]records.Record(nil), recs...)
	}
	return s
}

// NewFromDir loads every <collection>.json file in dir. A file holds either
// a JSON array of records or a query response object with a results field.
func NewFromDir(dir string) (*Store, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	s := New(nil)
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}
		recs, err := decodeFixture(raw)
		if err != nil {
			return nil, fmt.Errorf("decode fixture %s: %w", path, err)
		}
		s.collections[strings.TrimSuffix(filepath.Base(path), ".json")] = recs
	}
	return s, nil
}

func decodeFixture(raw []byte) ([]records.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var recs []records.Record
		err := json.Unmarshal(raw, &recs)
		return recs, err
	}
	var wrapped struct {
		Results []records.Record `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Results, nil
}

// FetchAll returns a copy of the collection with the query applied.
func (s *Store) FetchAll(_ context.Context, collectionID string, q records.Query) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", records.ErrCollectionNotFound, collectionID)
	}
	return records.Apply(recs, q), nil
}

// Replace swaps the collection contents.
func (s *Store) Replace(_ context.Context, collectionID string, recs []records.Record) error {
	if collectionID == "" {
		return errors.New("collection id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collectionID] = append([]records.Record(nil), recs...)
	return nil
}

// Collections lists the loaded collection ids in order.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.collections))
	for id := range s.collections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
