// Package sessiontest provides an in-memory session.Store for tests.
package sessiontest

import (
	"context"
	"sync"

	"github.com/vasiliy-maslov/sokoswift/internal/session"
)

type Store struct {
	mu   sync.Mutex
	data map[string]map[string]string
	Err  error
}

var _ session.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: make(map[string]map[string]string)}
}

func (s *Store) Get(_ context.Context, sid, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.data[sid][key], nil
}

func (s *Store) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.data[sid] == nil {
		s.data[sid] = make(map[string]string)
	}
	s.data[sid][key] = value
	return nil
}

func (s *Store) Clear(_ context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.data[sid], key)
	return nil
}

// Value returns the stored value without going through the Store interface.
func (s *Store) Value(sid, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[sid][key]
}
