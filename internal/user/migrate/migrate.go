// Package migrate lazily upgrades legacy user records to the newest
// generation's structure, one record at a time or as a bulk sweep.
package migrate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nomen/internal/user/metrics"
	"nomen/internal/user/models"
)

// Store is the subset of the user store the engine needs.
type Store interface {
	Save(ctx context.Context, user *models.User) (*models.User, error)
	FindMigrationEligible(ctx context.Context) ([]*models.User, error)
}

// Engine derives missing newer fields from older ones and persists the
// upgraded record. Derivation is deterministic and idempotent, which is the
// only thing that makes concurrent migration of the same record safe; there
// is no locking and no compare-and-swap.
type Engine struct {
	store  Store
	logger *slog.Logger
	m      *metrics.Metrics
	limit  int
	now    func() time.Time
}

// Option configures the Engine.
type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.m = m
	}
}

// WithLimit bounds how many records a bulk sweep upgrades concurrently.
func WithLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		limit: 8,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// MigrateOne upgrades a single record: split names are derived from the full
// name when missing, a missing name sub-record is created from the split
// names, and the result is persisted. Already-migrated records are returned
// unchanged without a write.
func (e *Engine) MigrateOne(ctx context.Context, user *models.User) (*models.User, error) {
	if !user.NeedsMigration() {
		return user.Clone(), nil
	}
	migrated := user.Migrated(e.now())
	saved, err := e.store.Save(ctx, migrated)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// MigrateAll sweeps every record the store flags as eligible. Per-record
// failures are logged and skipped, leaving the record eligible for the next
// pass; the sweep reports only records that persisted. Ordering across
// records is not guaranteed.
func (e *Engine) MigrateAll(ctx context.Context) ([]*models.User, error) {
	eligible, err := e.store.FindMigrationEligible(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		migrated []*models.User
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for _, user := range eligible {
		g.Go(func() error {
			upgraded, err := e.MigrateOne(ctx, user)
			if err != nil {
				// At-least-once: the record stays eligible and is retried
				// on the next pass.
				e.logger.WarnContext(ctx, "migration failed, record left eligible",
					"username", user.Username,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			migrated = append(migrated, upgraded)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.m.IncMigrated(len(migrated))
	e.logger.InfoContext(ctx, "migration sweep finished",
		"eligible", len(eligible),
		"migrated", len(migrated),
	)
	return migrated, nil
}
