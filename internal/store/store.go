// Package store defines the persistence interface for the sizing engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// Every decimal field is persisted through its canonical string form, so a
// store/reload cycle reproduces values exactly — no binary float detour.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/finsizer/sizing-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Providers own their components:
// components are written, loaded, and deleted with the provider, in order.
type Store interface {
	// --- Provider operations ---

	// CreateProvider persists a new provider and its components.
	CreateProvider(ctx context.Context, p *model.Provider) error

	// GetProvider retrieves a provider with its ordered components.
	GetProvider(ctx context.Context, id string) (*model.Provider, error)

	// ListProviders returns all providers.
	ListProviders(ctx context.Context) ([]model.Provider, error)

	// ListActiveProviders returns providers whose active window covers
	// the given date.
	ListActiveProviders(ctx context.Context, date time.Time) ([]model.Provider, error)

	// UpdateProvider replaces a provider and its owned components.
	UpdateProvider(ctx context.Context, p *model.Provider) error

	// DeleteProvider removes a provider and cascades to its components.
	DeleteProvider(ctx context.Context, id string) error

	// --- Settings ---

	// GetSettings loads the calculation settings, falling back to
	// defaults when none have been saved yet.
	GetSettings(ctx context.Context) (*model.Settings, error)

	// SaveSettings persists the calculation settings.
	SaveSettings(ctx context.Context, s *model.Settings) error
}
