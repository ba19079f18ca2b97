package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sdcp-backend/internal/models"
)

// JSONStore keeps a collection as one JSON array file under the data dir,
// rewritten in full on every mutation. A per-collection mutex serializes
// read-modify-write cycles, and writes go through a temp file + rename so a
// crash mid-write cannot truncate the collection.
type JSONStore[T any] struct {
	path string
	id   func(T) string

	mu sync.Mutex
}

func NewJSONStore[T any](dataDir, collection string, id func(T) string) (*JSONStore[T], error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &JSONStore[T]{
		path: filepath.Join(dataDir, collection+".json"),
		id:   id,
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.write([]T{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *JSONStore[T]) All(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *JSONStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.read()
	if err != nil {
		return zero, err
	}
	for _, rec := range recs {
		if s.id(rec) == id {
			return rec, nil
		}
	}
	return zero, ErrNotFound
}

func (s *JSONStore[T]) Upsert(ctx context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.read()
	if err != nil {
		return err
	}
	id := s.id(rec)
	replaced := false
	for i := range recs {
		if s.id(recs[i]) == id {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return s.write(recs)
}

func (s *JSONStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.read()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, rec := range recs {
		if s.id(rec) == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return ErrNotFound
	}
	return s.write(kept)
}

func (s *JSONStore[T]) read() ([]T, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var recs []T
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return recs, nil
}

func (s *JSONStore[T]) write(recs []T) error {
	raw, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// NewJSONStores opens every collection the app uses under dataDir.
func NewJSONStores(dataDir string) (*Stores, error) {
	users, err := NewJSONStore(dataDir, "users", func(u models.User) string { return u.ID.String() })
	if err != nil {
		return nil, err
	}
	referrals, err := NewJSONStore(dataDir, "referrals", func(r models.Referral) string { return r.ID.String() })
	if err != nil {
		return nil, err
	}
	estimates, err := NewJSONStore(dataDir, "estimates", func(e models.Estimate) string { return e.ID.String() })
	if err != nil {
		return nil, err
	}
	testimonials, err := NewJSONStore(dataDir, "testimonials", func(t models.Testimonial) string { return t.ID.String() })
	if err != nil {
		return nil, err
	}
	examples, err := NewJSONStore(dataDir, "examples", func(e models.Example) string { return e.ID.String() })
	if err != nil {
		return nil, err
	}
	return &Stores{
		Users:        users,
		Referrals:    referrals,
		Estimates:    estimates,
		Testimonials: testimonials,
		Examples:     examples,
	}, nil
}
