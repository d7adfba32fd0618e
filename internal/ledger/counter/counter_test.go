package counter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentflow-decision-ledger/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countFake struct {
	calls atomic.Int64
	total atomic.Int64
	err   error
	delay time.Duration
}

func (f *countFake) fn(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.total.Load(), nil
}

type storeFake struct {
	mu          sync.Mutex
	total       int64
	refreshedAt time.Time
	loadErr     error
	saves       int
}

func (s *storeFake) Load(ctx context.Context) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, time.Time{}, s.loadErr
	}
	return s.total, s.refreshedAt, nil
}

func (s *storeFake) Save(ctx context.Context, total int64, refreshedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.refreshedAt = refreshedAt
	s.saves++
	return nil
}

func counterConfig(ttl time.Duration) *config.CounterConfig {
	return &config.CounterConfig{CacheTTL: ttl}
}

func TestTotal_CachesWithinFreshnessWindow(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(5)
	c := New(testLogger(), counterConfig(time.Minute), fake.fn, nil)

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	fake.total.Store(9) // the ledger moved on, the snapshot has not
	total, err = c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, int64(1), fake.calls.Load())
}

func TestTotal_RefreshesAfterTTL(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(5)
	c := New(testLogger(), counterConfig(10*time.Millisecond), fake.fn, nil)

	_, err := c.Total(context.Background())
	require.NoError(t, err)

	fake.total.Store(9)
	time.Sleep(15 * time.Millisecond)

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), total)
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestInvalidate_ForcesRefresh(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(5)
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	_, err := c.Total(context.Background())
	require.NoError(t, err)

	fake.total.Store(6)
	c.Invalidate()

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestTotal_SingleFlight(t *testing.T) {
	fake := &countFake{delay: 20 * time.Millisecond}
	fake.total.Store(3)
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			total, err := c.Total(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(3), total)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), fake.calls.Load(), "concurrent readers share one refresh")
}

func TestTotal_ServesStaleOnRefreshFailure(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(5)
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	_, err := c.Total(context.Background())
	require.NoError(t, err)

	fake.err = errors.New("ledger unreachable")
	c.Invalidate()

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestTotal_JoinerSeesRefreshFailure(t *testing.T) {
	fake := &countFake{delay: 50 * time.Millisecond, err: errors.New("ledger unreachable")}
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	totals := make([]int64, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			totals[i], errs[i] = c.Total(context.Background())
		}()
		// Stagger so the second caller joins the first's refresh
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	for i := range errs {
		assert.Error(t, errs[i], "no snapshot ever existed, so every caller fails")
		assert.Zero(t, totals[i])
	}
	assert.Equal(t, int64(1), fake.calls.Load(), "the joiner shares the failed refresh")
}

func TestTotal_JoinerServesStaleOnRefreshFailure(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(5)
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	_, err := c.Total(context.Background())
	require.NoError(t, err)

	fake.err = errors.New("ledger unreachable")
	fake.delay = 50 * time.Millisecond
	c.Invalidate()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			total, err := c.Total(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(5), total)
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()
}

func TestTotal_FailsWithoutAnySnapshot(t *testing.T) {
	fake := &countFake{err: errors.New("ledger unreachable")}
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, nil)

	_, err := c.Total(context.Background())
	assert.Error(t, err)
}

func TestTotal_SeedsFromStore(t *testing.T) {
	fake := &countFake{}
	store := &storeFake{total: 12, refreshedAt: time.Now()}
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, store)

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Zero(t, fake.calls.Load(), "a fresh persisted snapshot avoids the ledger entirely")
}

func TestTotal_PersistsAfterRefresh(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(7)
	store := &storeFake{}
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, store)

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, int64(7), store.total)
	assert.Equal(t, 1, store.saves)
}

func TestTotal_StoreLoadFailureFallsThrough(t *testing.T) {
	fake := &countFake{}
	fake.total.Store(4)
	store := &storeFake{loadErr: errors.New("postgres down")}
	c := New(testLogger(), counterConfig(time.Hour), fake.fn, store)

	total, err := c.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
