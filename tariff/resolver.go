package tariff

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Store persists the single current tariff. Load returns nil when no tariff was ever saved.
type Store interface {
	LoadTariff(ctx context.Context) (*Tariff, error)
	SaveTariff(ctx context.Context, t Tariff) error
}

// Resolver owns the process-wide current tariff.
//
// Reads are lock-free and may run concurrently with an update; they observe either the fully
// old or the fully new tariff, never a mix. Updates are serialised and replace the whole
// value with an incremented version.
type Resolver struct {
	current atomic.Pointer[Tariff]

	updateMu sync.Mutex // serialises Update calls
	store    Store
	now      func() time.Time
	logger   *slog.Logger
}

// NewResolver creates a Resolver backed by the given store. The store may be nil, in which
// case tariffs live only in memory (used by tests).
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "tariff_resolver"),
	}
}

// Load pulls the persisted tariff into memory. It is called once on startup; a store with no
// saved tariff is not an error, the resolver just stays unconfigured.
func (r *Resolver) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	t, err := r.store.LoadTariff(ctx)
	if err != nil {
		return fmt.Errorf("load tariff: %w", err)
	}
	if t == nil {
		r.logger.Info("No persisted tariff found")
		return nil
	}
	r.current.Store(t)
	r.logger.Info("Loaded persisted tariff", "version", t.Version)
	return nil
}

// Current returns the current tariff, or ErrNoTariffConfigured if none was ever set.
func (r *Resolver) Current() (Tariff, error) {
	t := r.current.Load()
	if t == nil {
		return Tariff{}, ErrNoTariffConfigured
	}
	return *t, nil
}

// Update merges the partial input over the current tariff, derives the missing field per
// gross = net * (1 + vat/100), persists the result and swaps it in atomically. Every
// subsequent cost computation uses the new tariff; reports already produced keep the
// prices they were computed with.
func (r *Resolver) Update(ctx context.Context, in Input) (Tariff, error) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	previous := r.current.Load()

	next, err := resolve(previous, in)
	if err != nil {
		return Tariff{}, err
	}
	next.UpdatedAt = r.now()
	if previous != nil {
		next.Version = previous.Version + 1
	} else {
		next.Version = 1
	}

	if r.store != nil {
		if err := r.store.SaveTariff(ctx, next); err != nil {
			return Tariff{}, fmt.Errorf("save tariff: %w", err)
		}
	}

	r.current.Store(&next)
	r.logger.Info("Updated tariff", "version", next.Version)
	return next, nil
}
