// Package favorites is a small file-backed store for the user's favorite
// cities and cryptocurrencies.
package favorites

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type Kind string

const (
	KindCity   Kind = "city"
	KindCrypto Kind = "crypto"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCity:
		return KindCity, nil
	case KindCrypto:
		return KindCrypto, nil
	default:
		return "", fmt.Errorf("unknown favorites kind %q", s)
	}
}

// Store keeps per-kind id lists, persisted as JSON after every mutation.
// A missing or corrupt file resets to empty rather than failing startup.
type Store struct {
	mu   sync.Mutex
	path string
	m    map[Kind][]string
}

func NewStore(path string) *Store {
	s := &Store{path: path, m: make(map[Kind][]string)}
	s.load()
	return s
}

func (s *Store) load() {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var m map[Kind][]string
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return
	}
	s.m = m
}

func (s *Store) save() error {
	b, err := json.MarshalIndent(s.m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), fs.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// List returns a copy of the favorites for one kind.
func (s *Store) List(kind Kind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.m[kind]))
	copy(out, s.m[kind])
	return out
}

func (s *Store) IsFavorite(kind Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return contains(s.m[kind], id)
}

// Add appends id to the kind's list if absent.
func (s *Store) Add(kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contains(s.m[kind], id) {
		return nil
	}
	s.m[kind] = append(s.m[kind], id)
	return s.save()
}

// Remove drops id from the kind's list.
func (s *Store) Remove(kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.m[kind]
	kept := list[:0]
	for _, v := range list {
		if v != id {
			kept = append(kept, v)
		}
	}
	s.m[kind] = kept
	return s.save()
}

// Toggle flips membership and reports the new state.
func (s *Store) Toggle(kind Kind, id string) (bool, error) {
	if s.IsFavorite(kind, id) {
		return false, s.Remove(kind, id)
	}
	return true, s.Add(kind, id)
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
