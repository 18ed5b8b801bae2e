package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is an in-process implementation of app.Store. Values are kept as
// serialized JSON so reads get copies, matching the isolation a real backing
// store provides.
type Store struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewStore() *Store {
	return &Store{data: make(map[string]json.RawMessage)}
}

func (s *Store) Get(_ context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
