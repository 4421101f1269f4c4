package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmission-api/internal/common/logger"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   atomic.Int32
	records []Record
	err     error
	delay   time.Duration
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Fetch(ctx context.Context) ([]Record, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records, p.err
}

func (p *fakeProvider) set(records []Record, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records, p.err = records, err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memorySnapshot struct {
	saved []Record
	err   error
}

func (m *memorySnapshot) Save(_ context.Context, records []Record) error {
	m.saved = records
	return nil
}

func (m *memorySnapshot) Load(context.Context) ([]Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		return nil, ErrSnapshotMissing
	}
	return m.saved, nil
}

type countingAlerter struct{ calls atomic.Int32 }

func (a *countingAlerter) CatalogUnavailable(context.Context, string, error) { a.calls.Add(1) }

var (
	recordsV1 = []Record{{Make: "HONDA", Model: "ACCORD", YearRange: "98-02"}}
	recordsV2 = []Record{{Make: "HONDA", Model: "ACCORD", YearRange: "98-02"}, {Make: "NISSAN", Model: "TSURU"}}
)

func newTestCache(t *testing.T, p Provider, opts Options) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	return NewCache(p, opts, logger.NewTestLogger(t)), clock
}

func TestCache_ServesFromMemoryWithinTTL(t *testing.T) {
	p := &fakeProvider{records: recordsV1}
	c, clock := newTestCache(t, p, Options{TTL: time.Hour})

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV1, got)

	clock.Advance(30 * time.Minute)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCache_RefreshesAfterTTL(t *testing.T) {
	p := &fakeProvider{records: recordsV1}
	c, clock := newTestCache(t, p, Options{TTL: time.Hour})

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	p.set(recordsV2, nil)
	clock.Advance(61 * time.Minute)

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV2, got)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCache_ServesStaleOnRefreshFailure(t *testing.T) {
	p := &fakeProvider{records: recordsV1}
	c, clock := newTestCache(t, p, Options{TTL: time.Hour, RetryBackoff: time.Minute})

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	p.set(nil, errors.New("503 from origin"))
	clock.Advance(2 * time.Hour)

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV1, got)
	assert.Equal(t, int32(2), p.calls.Load())

	// Within the backoff window the provider is not asked again.
	clock.Advance(30 * time.Second)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())

	clock.Advance(time.Minute)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestCache_EmptyRefreshKeepsPrevious(t *testing.T) {
	p := &fakeProvider{records: recordsV1}
	c, clock := newTestCache(t, p, Options{TTL: time.Minute})

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	p.set([]Record{}, nil)
	clock.Advance(2 * time.Minute)

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV1, got)
}

func TestCache_ColdFailureIsUnavailable(t *testing.T) {
	p := &fakeProvider{err: errors.New("dial tcp: no route")}
	alerter := &countingAlerter{}
	c, _ := newTestCache(t, p, Options{TTL: time.Hour, Alerter: alerter})

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.False(t, c.Loaded())
	assert.Equal(t, int32(1), alerter.calls.Load())
}

func TestCache_ColdFailureFallsBackToSnapshot(t *testing.T) {
	snap := &memorySnapshot{saved: recordsV2}
	p := &fakeProvider{err: errors.New("timeout")}
	alerter := &countingAlerter{}
	c, _ := newTestCache(t, p, Options{TTL: time.Hour, Snapshot: snap, Alerter: alerter})

	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV2, got)

	status, ok := c.Status()
	require.True(t, ok)
	assert.Equal(t, "snapshot", status.Origin)
	assert.Equal(t, 2, status.Records)
	assert.Equal(t, int32(0), alerter.calls.Load())
}

func TestCache_SavesSnapshotAfterRefresh(t *testing.T) {
	snap := &memorySnapshot{}
	c, _ := newTestCache(t, &fakeProvider{records: recordsV1}, Options{Snapshot: snap})

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV1, snap.saved)
}

func TestCache_ZeroTTLNeverExpiresUntilInvalidated(t *testing.T) {
	p := &fakeProvider{records: recordsV1}
	c, clock := newTestCache(t, p, Options{})

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(1000 * time.Hour)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())

	p.set(recordsV2, nil)
	c.Invalidate()
	got, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordsV2, got)
}

func TestCache_ConcurrentGetsShareOneFetch(t *testing.T) {
	p := &fakeProvider{records: recordsV1, delay: 50 * time.Millisecond}
	c, _ := newTestCache(t, p, Options{TTL: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCache_FetchTimeout(t *testing.T) {
	p := &fakeProvider{records: recordsV1, delay: time.Second}
	c, _ := newTestCache(t, p, Options{FetchTimeout: 20 * time.Millisecond})

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
}
