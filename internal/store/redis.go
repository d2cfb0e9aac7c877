package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finsizer/sizing-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. Decimal fields cache
// through their canonical JSON string form, so the cache never degrades
// precision.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (primary first, then invalidate) ---

func (s *CachedStore) CreateProvider(ctx context.Context, p *model.Provider) error {
	if err := s.primary.CreateProvider(ctx, p); err != nil {
		return err
	}
	s.cacheProvider(ctx, p)
	s.rdb.Del(ctx, providerListKey)
	return nil
}

func (s *CachedStore) UpdateProvider(ctx context.Context, p *model.Provider) error {
	if err := s.primary.UpdateProvider(ctx, p); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, providerKey(p.ID), providerListKey)
	return nil
}

func (s *CachedStore) DeleteProvider(ctx context.Context, id string) error {
	if err := s.primary.DeleteProvider(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, providerKey(id), providerListKey)
	return nil
}

func (s *CachedStore) SaveSettings(ctx context.Context, st *model.Settings) error {
	if err := s.primary.SaveSettings(ctx, st); err != nil {
		return err
	}
	s.rdb.Del(ctx, settingsKey)
	return nil
}

// --- Reads (cache first) ---

func (s *CachedStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	data, err := s.rdb.Get(ctx, providerKey(id)).Bytes()
	if err == nil {
		var p model.Provider
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheProvider(ctx, p)
	return p, nil
}

func (s *CachedStore) ListProviders(ctx context.Context) ([]model.Provider, error) {
	data, err := s.rdb.Get(ctx, providerListKey).Bytes()
	if err == nil {
		var providers []model.Provider
		if json.Unmarshal(data, &providers) == nil {
			return providers, nil
		}
	}

	providers, err := s.primary.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(providers); err == nil {
		s.rdb.Set(ctx, providerListKey, data, s.ttl)
	}
	return providers, nil
}

func (s *CachedStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	data, err := s.rdb.Get(ctx, settingsKey).Bytes()
	if err == nil {
		var st model.Settings
		if json.Unmarshal(data, &st) == nil {
			return &st, nil
		}
	}

	st, err := s.primary.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(st); err == nil {
		s.rdb.Set(ctx, settingsKey, data, s.ttl)
	}
	return st, nil
}

// --- Passthrough (not cached) ---

// ListActiveProviders is date-parameterized, so caching it would need a
// key per day; the active filter is cheap enough to run on the primary.
func (s *CachedStore) ListActiveProviders(ctx context.Context, date time.Time) ([]model.Provider, error) {
	return s.primary.ListActiveProviders(ctx, date)
}

// --- Cache helpers ---

func (s *CachedStore) cacheProvider(ctx context.Context, p *model.Provider) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, providerKey(p.ID), data, s.ttl)
	}
}

const (
	providerListKey = "providers:all"
	settingsKey     = "settings"
)

func providerKey(id string) string { return fmt.Sprintf("provider:%s", id) }
