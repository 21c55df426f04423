// Package poller polls the upstream stats API for every tracked identity on a fixed
// interval, advances watermarks for newly observed matches and emits the eligible ones.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"example.com/matchwatch/internal/detector"
	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/observability"
)

const (
	defaultInterval = 30 * time.Second
	defaultBuffer   = 64
)

// Option configures optional behaviour for the Poller.
type Option func(*Poller)

// WithInterval sets the time between the start of consecutive ticks.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxConcurrency bounds the number of upstream fetches in flight. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithFetchTimeout bounds each upstream fetch so one hung call cannot stall the tick.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) { p.fetchTimeout = d }
}

// WithBuffer sets the capacity of the emitted record channel.
func WithBuffer(n int) Option {
	return func(p *Poller) {
		if n >= 0 {
			p.buffer = n
		}
	}
}

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithClock overrides the clock driving the tick interval.
func WithClock(clk clock.Clock) Option {
	return func(p *Poller) { p.clock = clk }
}

// Poller runs the poll-diff-persist-emit cycle over the roster.
type Poller struct {
	store            domain.RosterStore
	client           domain.UpstreamClient
	clock            clock.Clock
	logger           *zap.Logger
	interval         time.Duration
	fetchTimeout     time.Duration
	buffer           int
	sem              *semaphore.Weighted
	records          chan domain.ActivityRecord
	shutdownComplete chan struct{}
}

// New constructs a Poller reading identities from store and fetching matches with client.
func New(store domain.RosterStore, client domain.UpstreamClient, opts ...Option) *Poller {
	p := &Poller{
		store:            store,
		client:           client,
		clock:            clock.WallClock,
		logger:           zap.NewNop(),
		interval:         defaultInterval,
		buffer:           defaultBuffer,
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.records = make(chan domain.ActivityRecord, p.buffer)
	return p
}

// Records returns the sequence of newly observed eligible records. It is closed once
// Start returns.
func (p *Poller) Records() <-chan domain.ActivityRecord {
	return p.records
}

// Start launches the polling loop. It should be called in a goroutine and returns when
// ctx is cancelled; an in-flight tick is abandoned.
func (p *Poller) Start(ctx context.Context) {
	defer func() {
		close(p.records)
		close(p.shutdownComplete)
	}()

	for {
		started := p.clock.Now()
		if err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("poll tick failed", zap.Error(err))
		}

		wait := p.interval - p.clock.Now().Sub(started)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(wait):
		}
	}
}

// Wait waits until the polling loop stops.
func (p *Poller) Wait() {
	<-p.shutdownComplete
}

// Tick lists the roster, fetches every identity concurrently and reconciles the results.
// It returns only after all fetches have settled and every watermark write and emission
// for this tick has finished. Per-identity failures are logged, not returned.
func (p *Poller) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()
	tickCounter.Inc()

	identities, err := p.store.ListTracked(ctx)
	if err != nil {
		listErrorCounter.Inc()
		return errors.WithType(errors.Annotate(err, "listing roster"), domain.ErrList)
	}
	observability.RecordRosterSize(len(identities))

	results := p.fetchAll(ctx, identities)
	if err := p.reconcile(ctx, results); err != nil {
		return err
	}

	observability.RecordTickCompleted(p.clock.Now())
	return nil
}

func (p *Poller) fetchAll(ctx context.Context, identities []domain.Identity) []domain.PollResult {
	results := make([]domain.PollResult, len(identities))

	var wg sync.WaitGroup
	for i, identity := range identities {
		if p.sem != nil {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				for j := i; j < len(identities); j++ {
					results[j] = domain.PollResult{Identity: identities[j], Err: err}
				}
				break
			}
		}

		wg.Add(1)
		go func(i int, identity domain.Identity) {
			defer wg.Done()
			if p.sem != nil {
				defer p.sem.Release(1)
			}
			results[i] = p.fetchOne(ctx, identity)
		}(i, identity)
	}
	wg.Wait()

	return results
}

func (p *Poller) fetchOne(ctx context.Context, identity domain.Identity) (result domain.PollResult) {
	result.Identity = identity
	defer func() {
		if r := recover(); r != nil {
			result.Record = nil
			result.Err = errors.Annotatef(domain.ErrFetch, "panic: %v", r)
		}
	}()

	fetchCtx := ctx
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	record, err := p.client.FetchLatest(fetchCtx, identity.Key)
	if err != nil {
		result.Err = err
		return result
	}
	if record != nil {
		if record.RecordID == "" {
			result.Err = errors.Annotate(domain.ErrFetch, "record without id")
			return result
		}
		if record.IdentityKey == "" {
			record.IdentityKey = identity.Key
		}
	}
	result.Record = record
	return result
}

// reconcile runs sequentially so each identity sees at most one watermark write per tick.
func (p *Poller) reconcile(ctx context.Context, results []domain.PollResult) error {
	for _, res := range results {
		logger := p.logger.With(zap.String("identity", res.Identity.Key))

		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fetchErrorCounter.Inc()
			logger.Warn("fetch failed, skipping identity this tick", zap.Error(res.Err))
			continue
		}

		decision := detector.Evaluate(res.Identity.LastSeenRecordID, res.Record)
		if decision.Update == nil {
			continue
		}

		// A failed write leaves the watermark stale, so the record is emitted
		// anyway and may be emitted once more next tick.
		if err := p.store.AdvanceWatermark(ctx, res.Identity.Key, *decision.Update); err != nil {
			persistErrorCounter.Inc()
			logger.Error("advancing watermark failed",
				zap.String("record_id", *decision.Update),
				zap.Error(errors.WithType(err, domain.ErrPersist)))
		} else {
			advancedCounter.Inc()
			observability.RecordWatermarkAdvanced(p.clock.Now())
		}

		switch {
		case decision.Emit == nil:
			suppressedCounter.WithLabelValues(reasonIneligible).Inc()
			logger.Debug("new record not eligible for notice", zap.String("record_id", *decision.Update))
			continue
		case !res.Identity.Enabled:
			suppressedCounter.WithLabelValues(reasonDisabled).Inc()
			logger.Debug("identity disabled, not emitting", zap.String("record_id", *decision.Update))
			continue
		}

		select {
		case p.records <- *decision.Emit:
			emittedCounter.Inc()
			logger.Info("new record observed", zap.String("record_id", decision.Emit.RecordID))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
