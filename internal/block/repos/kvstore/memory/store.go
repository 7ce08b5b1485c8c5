package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/repos/kvstore"
)

// store is an in-memory kvstore.Store.
type store struct {
	mu       sync.RWMutex
	values   map[string]json.RawMessage
	notifier kvstore.Notifier
}

// New returns an empty in-memory Store.
func New() kvstore.Store {
	return &store{values: make(map[string]json.RawMessage)}
}

func (s *store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (s *store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := kvstore.CheckWrite(key, value); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	next := append(json.RawMessage(nil), value...)
	s.mu.Lock()
	old := s.values[key]
	s.values[key] = next
	s.mu.Unlock()

	s.notifier.Notify(key, old, next)
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	old, ok := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()

	if ok {
		s.notifier.Notify(key, old, nil)
	}
	return nil
}

func (s *store) Subscribe(fn func(domain.Change)) func() {
	return s.notifier.Subscribe(fn)
}

func (s *store) Close() error { return nil }
