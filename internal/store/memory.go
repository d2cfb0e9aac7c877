package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finsizer/sizing-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	providers map[string]*model.Provider
	settings  *model.Settings
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers: make(map[string]*model.Provider),
	}
}

func (s *MemoryStore) CreateProvider(_ context.Context, p *model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[p.ID]; ok {
		return fmt.Errorf("provider %s already exists", p.ID)
	}
	s.providers[p.ID] = cloneProvider(p)
	return nil
}

func (s *MemoryStore) GetProvider(_ context.Context, id string) (*model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("get provider %s: %w", id, ErrNotFound)
	}
	return cloneProvider(p), nil
}

func (s *MemoryStore) ListProviders(_ context.Context) ([]model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(model.Provider) bool { return true }), nil
}

func (s *MemoryStore) ListActiveProviders(_ context.Context, date time.Time) ([]model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p model.Provider) bool { return p.IsActive(date) }), nil
}

func (s *MemoryStore) collect(keep func(model.Provider) bool) []model.Provider {
	providers := make([]model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if keep(*p) {
			providers = append(providers, *cloneProvider(p))
		}
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].Name != providers[j].Name {
			return providers[i].Name < providers[j].Name
		}
		return providers[i].ActiveFrom.Before(providers[j].ActiveFrom)
	})
	return providers
}

func (s *MemoryStore) UpdateProvider(_ context.Context, p *model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[p.ID]; !ok {
		return fmt.Errorf("update provider %s: %w", p.ID, ErrNotFound)
	}
	s.providers[p.ID] = cloneProvider(p)
	return nil
}

func (s *MemoryStore) DeleteProvider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[id]; !ok {
		return fmt.Errorf("delete provider %s: %w", id, ErrNotFound)
	}
	delete(s.providers, id)
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (*model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		defaults := model.DefaultSettings()
		return &defaults, nil
	}
	copy := *s.settings
	return &copy, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, st *model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *st
	s.settings = &copy
	return nil
}

// cloneProvider deep-copies a provider so callers cannot mutate stored state.
func cloneProvider(p *model.Provider) *model.Provider {
	copy := *p
	if p.ActiveTo != nil {
		to := *p.ActiveTo
		copy.ActiveTo = &to
	}
	copy.Components = append([]model.CostComponent(nil), p.Components...)
	return &copy
}
