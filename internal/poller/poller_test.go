package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/matchwatch/internal/domain"
)

func TestTickEmitsNewEligibleRecord(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", LastSeenRecordID: ptr("m1"), Enabled: true})
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"foo": {RecordID: "m2", EligibleForNotice: true},
	}}
	p := newTestPoller(t, store, client)

	beforeEmitted := testutil.ToFloat64(emittedCounter)

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "m2", store.watermark("foo"))
	emitted := drain(p)
	require.Len(t, emitted, 1)
	require.Equal(t, "m2", emitted[0].RecordID)
	require.Equal(t, "foo", emitted[0].IdentityKey)
	require.InDelta(t, beforeEmitted+1, testutil.ToFloat64(emittedCounter), 0.0001)
}

func TestTickUnchangedRecordDoesNothing(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", LastSeenRecordID: ptr("m1"), Enabled: true})
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"foo": {RecordID: "m1", EligibleForNotice: true},
	}}
	p := newTestPoller(t, store, client)

	require.NoError(t, p.Tick(context.Background()))

	require.Zero(t, store.writeCount())
	require.Empty(t, drain(p))
}

func TestTickIneligibleRecordAdvancesWatermarkOnly(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", LastSeenRecordID: ptr("m1"), Enabled: true})
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"foo": {RecordID: "m3", EligibleForNotice: false},
	}}
	p := newTestPoller(t, store, client)

	beforeSuppressed := testutil.ToFloat64(suppressedCounter.WithLabelValues(reasonIneligible))

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "m3", store.watermark("foo"))
	require.Empty(t, drain(p))
	require.InDelta(t, beforeSuppressed+1, testutil.ToFloat64(suppressedCounter.WithLabelValues(reasonIneligible)), 0.0001)
}

func TestTickNoRecordsLeavesWatermark(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", Enabled: true})
	p := newTestPoller(t, store, &stubClient{})

	require.NoError(t, p.Tick(context.Background()))

	require.Zero(t, store.writeCount())
	require.Empty(t, drain(p))
}

func TestTickIsolatesFetchFailures(t *testing.T) {
	store := newMemoryStore(
		domain.Identity{Key: "alpha", LastSeenRecordID: ptr("a1"), Enabled: true},
		domain.Identity{Key: "bravo", LastSeenRecordID: ptr("b1"), Enabled: true},
	)
	client := &stubClient{
		records: map[string]*domain.ActivityRecord{
			"bravo": {RecordID: "b2", EligibleForNotice: true},
		},
		errs: map[string]error{"alpha": errors.New("upstream returned 502")},
	}
	p := newTestPoller(t, store, client)

	beforeFetchErrors := testutil.ToFloat64(fetchErrorCounter)

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "a1", store.watermark("alpha"))
	require.Equal(t, "b2", store.watermark("bravo"))
	emitted := drain(p)
	require.Len(t, emitted, 1)
	require.Equal(t, "b2", emitted[0].RecordID)
	require.InDelta(t, beforeFetchErrors+1, testutil.ToFloat64(fetchErrorCounter), 0.0001)
}

func TestTickDisabledIdentityAdvancesWithoutEmitting(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", LastSeenRecordID: ptr("m1"), Enabled: false})
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"foo": {RecordID: "m2", EligibleForNotice: true},
	}}
	p := newTestPoller(t, store, client)

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "m2", store.watermark("foo"))
	require.Empty(t, drain(p))
}

func TestTickPersistFailureDoesNotBlockOthers(t *testing.T) {
	store := newMemoryStore(
		domain.Identity{Key: "alpha", LastSeenRecordID: ptr("a1"), Enabled: true},
		domain.Identity{Key: "bravo", LastSeenRecordID: ptr("b1"), Enabled: true},
	)
	store.failWrites = map[string]error{"alpha": errors.New("connection reset")}
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"alpha": {RecordID: "a2", EligibleForNotice: true},
		"bravo": {RecordID: "b2", EligibleForNotice: true},
	}}
	p := newTestPoller(t, store, client)

	beforePersistErrors := testutil.ToFloat64(persistErrorCounter)

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "a1", store.watermark("alpha"))
	require.Equal(t, "b2", store.watermark("bravo"))
	require.ElementsMatch(t, []string{"a2", "b2"}, recordIDs(drain(p)))
	require.InDelta(t, beforePersistErrors+1, testutil.ToFloat64(persistErrorCounter), 0.0001)
}

func TestTickListFailureSkipsTick(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", Enabled: true})
	store.listErr = errors.New("database unavailable")
	client := &stubClient{}
	p := newTestPoller(t, store, client)

	err := p.Tick(context.Background())
	require.ErrorIs(t, err, domain.ErrList)
	require.Zero(t, client.callCount())
}

func TestTickContainsPanickingFetch(t *testing.T) {
	store := newMemoryStore(
		domain.Identity{Key: "alpha", Enabled: true},
		domain.Identity{Key: "bravo", Enabled: true},
	)
	client := &stubClient{
		records: map[string]*domain.ActivityRecord{"bravo": {RecordID: "b1", EligibleForNotice: true}},
		panics:  map[string]bool{"alpha": true},
	}
	p := newTestPoller(t, store, client)

	require.NoError(t, p.Tick(context.Background()))

	require.Equal(t, "", store.watermark("alpha"))
	require.Equal(t, []string{"b1"}, recordIDs(drain(p)))
}

func TestTickRejectsRecordWithoutID(t *testing.T) {
	store := newMemoryStore(domain.Identity{Key: "foo", Enabled: true})
	client := &stubClient{records: map[string]*domain.ActivityRecord{"foo": {EligibleForNotice: true}}}
	p := newTestPoller(t, store, client)

	require.NoError(t, p.Tick(context.Background()))
	require.Zero(t, store.writeCount())
	require.Empty(t, drain(p))
}

func TestTickFetchTimeoutReleasesTick(t *testing.T) {
	store := newMemoryStore(
		domain.Identity{Key: "slow", Enabled: true},
		domain.Identity{Key: "fast", Enabled: true},
	)
	client := &stubClient{
		records: map[string]*domain.ActivityRecord{"fast": {RecordID: "f1", EligibleForNotice: true}},
		hang:    map[string]bool{"slow": true},
	}
	p := newTestPoller(t, store, client, WithFetchTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- p.Tick(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not finish after fetch timeout")
	}
	require.Equal(t, []string{"f1"}, recordIDs(drain(p)))
}

func TestTickRespectsMaxConcurrency(t *testing.T) {
	identities := make([]domain.Identity, 0, 12)
	records := make(map[string]*domain.ActivityRecord)
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		identities = append(identities, domain.Identity{Key: key, Enabled: true})
		records[key] = &domain.ActivityRecord{RecordID: key + "1", EligibleForNotice: true}
	}
	store := newMemoryStore(identities...)
	client := &stubClient{records: records, delay: 10 * time.Millisecond}
	p := newTestPoller(t, store, client, WithMaxConcurrency(3), WithBuffer(len(identities)))

	require.NoError(t, p.Tick(context.Background()))

	require.LessOrEqual(t, client.maxInFlight(), int32(3))
	require.Len(t, drain(p), len(identities))
}

func TestTickCancelledWhileEmitting(t *testing.T) {
	store := newMemoryStore(
		domain.Identity{Key: "alpha", Enabled: true},
		domain.Identity{Key: "bravo", Enabled: true},
	)
	client := &stubClient{records: map[string]*domain.ActivityRecord{
		"alpha": {RecordID: "a1", EligibleForNotice: true},
		"bravo": {RecordID: "b1", EligibleForNotice: true},
	}}
	p := newTestPoller(t, store, client, WithBuffer(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Tick(ctx) }()

	<-p.Records()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not observe cancellation")
	}
}

func TestStartPollsOnInterval(t *testing.T) {
	clk := testclock.NewClock(time.Date(2022, time.January, 15, 12, 0, 0, 0, time.UTC))
	store := newMemoryStore(domain.Identity{Key: "foo", LastSeenRecordID: ptr("m1"), Enabled: true})
	client := &stubClient{sequence: map[string][]*domain.ActivityRecord{
		"foo": {
			{RecordID: "m2", EligibleForNotice: true},
			{RecordID: "m3", EligibleForNotice: true},
		},
	}}
	p := newTestPoller(t, store, client, WithClock(clk), WithInterval(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go p.Start(ctx)

	first := receive(t, p.Records())
	require.Equal(t, "m2", first.RecordID)

	require.NoError(t, clk.WaitAdvance(5*time.Second, time.Second, 1))

	second := receive(t, p.Records())
	require.Equal(t, "m3", second.RecordID)
	require.Equal(t, "m3", store.watermark("foo"))

	cancel()
	p.Wait()

	_, open := <-p.Records()
	require.False(t, open, "records channel should be closed after shutdown")
}

func newTestPoller(t *testing.T, store domain.RosterStore, client domain.UpstreamClient, opts ...Option) *Poller {
	t.Helper()
	base := []Option{WithLogger(zaptest.NewLogger(t)), WithBuffer(16)}
	return New(store, client, append(base, opts...)...)
}

func drain(p *Poller) []domain.ActivityRecord {
	var out []domain.ActivityRecord
	for {
		select {
		case rec := <-p.Records():
			out = append(out, rec)
		default:
			return out
		}
	}
}

func receive(t *testing.T, ch <-chan domain.ActivityRecord) domain.ActivityRecord {
	t.Helper()
	select {
	case rec, ok := <-ch:
		require.True(t, ok)
		return rec
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for record")
	}
	return domain.ActivityRecord{}
}

func recordIDs(records []domain.ActivityRecord) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.RecordID)
	}
	return ids
}

func ptr(s string) *string { return &s }

type memoryStore struct {
	mu         sync.Mutex
	identities []domain.Identity
	writes     int
	listErr    error
	failWrites map[string]error
}

func newMemoryStore(identities ...domain.Identity) *memoryStore {
	return &memoryStore{identities: identities}
}

func (s *memoryStore) ListTracked(context.Context) ([]domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

func (s *memoryStore) AdvanceWatermark(_ context.Context, key, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrites[key]; err != nil {
		return err
	}
	s.writes++
	for i := range s.identities {
		if s.identities[i].Key == key {
			id := recordID
			s.identities[i].LastSeenRecordID = &id
		}
	}
	return nil
}

func (s *memoryStore) watermark(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.identities {
		if identity.Key == key && identity.LastSeenRecordID != nil {
			return *identity.LastSeenRecordID
		}
	}
	return ""
}

func (s *memoryStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type stubClient struct {
	mu       sync.Mutex
	records  map[string]*domain.ActivityRecord
	sequence map[string][]*domain.ActivityRecord
	errs     map[string]error
	panics   map[string]bool
	hang     map[string]bool
	delay    time.Duration
	calls    int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *stubClient) FetchLatest(ctx context.Context, key string) (*domain.ActivityRecord, error) {
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	c.mu.Lock()
	c.calls++
	record := c.records[key]
	if seq := c.sequence[key]; len(seq) > 0 {
		record = seq[0]
		c.sequence[key] = seq[1:]
	}
	err := c.errs[key]
	shouldPanic := c.panics[key]
	shouldHang := c.hang[key]
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if shouldPanic {
		panic("decoder exploded")
	}
	if shouldHang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *stubClient) maxInFlight() int32 {
	return c.peak.Load()
}
