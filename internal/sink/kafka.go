package sink

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/segmentio/kafka-go"

	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/events"
)

// KafkaProducer writes framed records, holding one writer per topic.
type KafkaProducer struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer for brokers. Writers are created on first use.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{brokers: brokers, writers: map[string]*kafka.Writer{}}
}

// WriteMessages writes msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.Lock()
	w, ok := p.writers[topic]
	if !ok {
		// Keyed by gamertag so one player's matches stay ordered on one partition.
		// Matches arrive one at a time per tick, so batches are flushed almost immediately.
		w = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			BatchTimeout: 10 * time.Millisecond,
		}
		p.writers[topic] = w
	}
	p.mu.Unlock()

	return errors.Annotatef(w.WriteMessages(ctx, msgs...), "writing to %s", topic)
}

// Close flushes and closes every writer. The first failure is returned.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && first == nil {
			first = errors.Annotatef(err, "closing writer for %s", topic)
		}
	}
	p.writers = map[string]*kafka.Writer{}
	return first
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// KafkaSink publishes emitted records as framed MatchObserved events, keyed by identity.
type KafkaSink struct {
	producer messageWriter
	registry schemaRegistrar
	topic    string
	subject  string
	now      func() time.Time

	mu       sync.Mutex
	schemaID int
	resolved bool
}

// NewKafkaSink constructs a KafkaSink. A nil registry frames records with schema id 0.
func NewKafkaSink(producer messageWriter, registry schemaRegistrar, topic string) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		registry: registry,
		topic:    topic,
		subject:  topic + "-value",
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Name identifies the sink in metrics.
func (s *KafkaSink) Name() string { return "kafka" }

// Deliver publishes record to the configured topic.
func (s *KafkaSink) Deliver(ctx context.Context, record domain.ActivityRecord) error {
	schemaID, err := s.resolveSchema(ctx)
	if err != nil {
		return errors.Annotate(err, "resolving match schema")
	}

	now := s.now()
	event := events.MatchObserved{
		EventID:    uuid.NewString(),
		ObservedAt: now,
		Gamertag:   record.Payload.Gamertag,
		MatchID:    record.RecordID,
		Match:      record.Payload,
	}
	if event.Gamertag == "" {
		event.Gamertag = record.IdentityKey
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Trace(err)
	}

	msg := kafka.Message{
		Key:   []byte(record.IdentityKey),
		Value: encodeWireFormat(schemaID, payload),
		Time:  now,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.TypeMatchObserved)},
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "schema_subject", Value: []byte(s.subject)},
		},
	}
	return errors.Annotatef(s.producer.WriteMessages(ctx, s.topic, msg), "publishing %s", record.RecordID)
}

func (s *KafkaSink) resolveSchema(ctx context.Context) (int, error) {
	if s.registry == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.schemaID, nil
	}

	id, err := s.registry.EnsureSchema(ctx, s.subject, matchObservedSchema)
	if err != nil {
		return 0, err
	}
	s.schemaID, s.resolved = id, true
	return id, nil
}

// encodeWireFormat applies Confluent framing for Schema Registry aware payloads.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
