// Package service coordinates identity merges: when the population registry
// folds one or more identifiers into a new active one, every row this
// service owns must move to the active identifier in a single transaction.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

// IdentityChecker verifies an identifier's status against the registry.
type IdentityChecker interface {
	IsActive(ctx context.Context, personident domain.Personident) (bool, error)
}

// PersonidentStore is implemented by every store owning rows keyed by
// personident. UpdatePersonident must join the ambient transaction.
type PersonidentStore interface {
	UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error)
	CountForPersonidents(ctx context.Context, idents []domain.Personident) (int64, error)
}

// Merger moves all rows for a merged person onto the active identifier.
type Merger struct {
	registry IdentityChecker
	stores   []PersonidentStore
	tx       database.Transactor
	logger   *slog.Logger
}

func NewMerger(registry IdentityChecker, tx database.Transactor, logger *slog.Logger, stores ...PersonidentStore) (*Merger, error) {
	if registry == nil {
		return nil, fmt.Errorf("identity checker is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one personident store is required")
	}
	return &Merger{registry: registry, stores: stores, tx: tx, logger: logger}, nil
}

// Merge repoints every row held under the inactive identifiers to the
// active one. A person with no rows is skipped without touching the
// registry. Both sides of the notification are re-verified first: the
// active identifier must still be active, and every inactive identifier
// must actually be retired — registries can merge again between
// notification and processing, and applying a stale or bogus notification
// would rewrite a live person's rows. All tables move in one transaction;
// a partial merge is worse than a late one.
func (m *Merger) Merge(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	if len(inactive) == 0 {
		return 0, nil
	}

	var held int64
	for _, store := range m.stores {
		count, err := store.CountForPersonidents(ctx, inactive)
		if err != nil {
			return 0, fmt.Errorf("count rows for merge: %w", err)
		}
		held += count
	}
	if held == 0 {
		return 0, nil
	}

	isActive, err := m.registry.IsActive(ctx, active)
	if err != nil {
		return 0, fmt.Errorf("verify active identifier: %w", err)
	}
	if !isActive {
		return 0, dErrors.New(dErrors.CodeConflict,
			"notified active identifier is no longer active in the registry")
	}
	for _, ident := range inactive {
		stillActive, err := m.registry.IsActive(ctx, ident)
		if err != nil {
			return 0, fmt.Errorf("verify inactive identifier: %w", err)
		}
		if stillActive {
			return 0, dErrors.New(dErrors.CodeConflict,
				"notified inactive identifier is still active in the registry")
		}
	}

	var moved int64
	err = m.tx.InTx(ctx, func(ctx context.Context) error {
		moved = 0
		for _, store := range m.stores {
			count, err := store.UpdatePersonident(ctx, inactive, active)
			if err != nil {
				return err
			}
			moved += count
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("merge personident rows: %w", err)
	}

	m.logger.Info("identity merge applied",
		"inactive_count", len(inactive),
		"rows_moved", moved,
	)
	return moved, nil
}
