package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const defaultSinkBuffer = 256

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards bus events to a Kafka topic from a background goroutine.
// Events are keyed by staff id so each calendar stays ordered within a partition.
// When the buffer is full events are dropped and logged.
type KafkaSink struct {
	writer MessageWriter
	queue  chan kafka.Message
	logger *zerolog.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaSink(writer MessageWriter, logger *zerolog.Logger) *KafkaSink {
	return &KafkaSink{
		writer: writer,
		queue:  make(chan kafka.Message, defaultSinkBuffer),
		logger: logger,
	}
}

// Attach subscribes the sink to every event type on the bus.
func (s *KafkaSink) Attach(bus *EventBus) {
	for _, eventType := range AllTypes {
		bus.Subscribe(eventType, s.enqueue)
	}
}

func (s *KafkaSink) enqueue(event *Event) error {
	msg := kafka.Message{
		Key:   []byte(partitionKey(event.Payload)),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	select {
	case s.queue <- msg:
	default:
		s.logger.Warn().Str("event_type", event.Type).Msg("kafka sink buffer full, dropping event")
	}
	return nil
}

// Run drains the queue until ctx is cancelled, then flushes what is left and closes the writer.
func (s *KafkaSink) Run(ctx context.Context) {
	defer func() {
		if err := s.writer.Close(); err != nil {
			s.logger.Error().Err(err).Msg("kafka writer close error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case msg := <-s.queue:
			s.write(ctx, msg)
		}
	}
}

func (s *KafkaSink) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-s.queue:
			s.write(ctx, msg)
		default:
			return
		}
	}
}

func (s *KafkaSink) write(ctx context.Context, msg kafka.Message) {
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("kafka publish failed")
	}
}

func partitionKey(payload []byte) string {
	var keyed struct {
		StaffID int64 `json:"staff_id"`
	}
	if err := json.Unmarshal(payload, &keyed); err != nil || keyed.StaffID == 0 {
		return ""
	}
	return strconv.FormatInt(keyed.StaffID, 10)
}
