// Package sink delivers records emitted by the poller to downstream consumers.
package sink

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"example.com/matchwatch/internal/domain"
)

// Sink hands an emitted record to a downstream system.
type Sink interface {
	Deliver(ctx context.Context, record domain.ActivityRecord) error
}

type named interface {
	Name() string
}

// Drain delivers every record from records to s until the channel is closed.
// Delivery failures are logged and counted; they never reach the poller.
func Drain(ctx context.Context, records <-chan domain.ActivityRecord, s Sink, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	label := "unknown"
	if n, ok := s.(named); ok {
		label = n.Name()
	}

	for record := range records {
		start := time.Now()
		err := s.Deliver(ctx, record)
		deliverDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			failedCounter.WithLabelValues(label).Inc()
			if !errors.Is(err, context.Canceled) {
				logger.Warn("sink delivery failed",
					zap.String("sink", label),
					zap.String("identity", record.IdentityKey),
					zap.String("record_id", record.RecordID),
					zap.Error(err))
			}
			continue
		}
		deliveredCounter.WithLabelValues(label).Inc()
	}
}

// LogSink writes each record to a logger. It stands in for Kafka when no brokers are configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Name identifies the sink in metrics.
func (s *LogSink) Name() string { return "log" }

// Deliver logs the record.
func (s *LogSink) Deliver(_ context.Context, record domain.ActivityRecord) error {
	s.logger.Info("match observed",
		zap.String("identity", record.IdentityKey),
		zap.String("record_id", record.RecordID),
		zap.String("outcome", record.Payload.Outcome),
		zap.String("category", record.Payload.Category),
		zap.Time("played_at", record.Payload.PlayedAt))
	return nil
}
