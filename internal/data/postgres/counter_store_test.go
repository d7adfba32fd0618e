package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCounterStore_Load(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &CounterStore{querier: mock, logger: logger}

	query := `
		SELECT total, refreshed_at
		FROM decision_counter_cache
		WHERE id = 1
	`

	t.Run("snapshot present", func(t *testing.T) {
		refreshedAt := time.Now().UTC()
		rows := pgxmock.NewRows([]string{"total", "refreshed_at"}).
			AddRow(int64(42), refreshedAt)
		mock.ExpectQuery(query).WillReturnRows(rows)

		total, at, err := store.Load(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), total)
		assert.Equal(t, refreshedAt, at)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(pgx.ErrNoRows)

		total, at, err := store.Load(ctx)
		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.True(t, at.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WillReturnError(expectedErr)

		_, _, err := store.Load(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load counter snapshot")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCounterStore_Save(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &CounterStore{querier: mock, logger: logger}

	query := `
		INSERT INTO decision_counter_cache \(id, total, refreshed_at\)
		VALUES \(1, \$1, \$2\)
		ON CONFLICT \(id\) DO UPDATE SET total = \$1, refreshed_at = \$2
	`
	refreshedAt := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(42), refreshedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Save(ctx, 42, refreshedAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(int64(42), refreshedAt).
			WillReturnError(expectedErr)

		err := store.Save(ctx, 42, refreshedAt)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save counter snapshot")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
