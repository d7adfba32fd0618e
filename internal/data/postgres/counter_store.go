// Package postgres provides the PostgreSQL persistence for the decision
// ledger client's counter cache. Only derived state lives here; the ledger
// remains the source of truth.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentflow-decision-ledger/internal/ledger/counter"
	"github.com/rentflow-decision-ledger/internal/platform/persistence"
)

// CounterStore implements the counter.Store interface for PostgreSQL. The
// cache is a singleton row shared by all gateway instances, so their
// freshness windows align instead of each instance counting separately.
type CounterStore struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCounterStore creates a new PostgreSQL counter store
func NewCounterStore(logger *slog.Logger, db *persistence.PostgresDB) counter.Store {
	return &CounterStore{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Load reads the persisted snapshot. A missing row is not an error; it
// returns a zero refreshedAt so the caller refreshes from the ledger.
func (s *CounterStore) Load(ctx context.Context) (int64, time.Time, error) {
	query := `
		SELECT total, refreshed_at
		FROM decision_counter_cache
		WHERE id = 1
	`

	var total int64
	var refreshedAt time.Time
	err := s.querier.QueryRow(ctx, query).Scan(&total, &refreshedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, time.Time{}, nil
		}
		s.logger.Error("Failed to load counter snapshot", "error", err)
		return 0, time.Time{}, fmt.Errorf("failed to load counter snapshot: %w", err)
	}

	return total, refreshedAt, nil
}

// Save upserts the singleton snapshot row
func (s *CounterStore) Save(ctx context.Context, total int64, refreshedAt time.Time) error {
	query := `
		INSERT INTO decision_counter_cache (id, total, refreshed_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET total = $1, refreshed_at = $2
	`

	_, err := s.querier.Exec(ctx, query, total, refreshedAt)
	if err != nil {
		s.logger.Error("Failed to save counter snapshot",
			"total", total,
			"error", err,
		)
		return fmt.Errorf("failed to save counter snapshot: %w", err)
	}

	return nil
}
