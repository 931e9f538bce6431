// Package notify publishes urgent-case events raised by the diagnostic
// workflow. Delivery is best effort; the diagnostic record is already saved
// when an event is published.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// EventType names the kind of event.
type EventType string

const (
	EventUrgentCase EventType = "diagnosis.urgent"
)

// Event describes a saved record whose triage level requires immediate
// attention.
type Event struct {
	Type             EventType `json:"type"`
	RecordID         string    `json:"recordId"`
	UserID           string    `json:"userId"`
	PatientID        string    `json:"patientId"`
	TriageLevel      int       `json:"triageLevel"`
	Severity         string    `json:"severity"`
	PrimaryDiagnosis string    `json:"primaryDiagnosis"`
	ICD10Code        string    `json:"icd10Code"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// ---------------------------------------------------------------------------
// LogPublisher
// ---------------------------------------------------------------------------

// LogPublisher writes events to the structured log. It is the default when no
// broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "notify").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.Warn().
		Str("event", string(evt.Type)).
		Str("record_id", evt.RecordID).
		Str("user_id", evt.UserID).
		Int("triage_level", evt.TriageLevel).
		Str("severity", evt.Severity).
		Str("icd10", evt.ICD10Code).
		Msg("urgent case")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// ---------------------------------------------------------------------------
// KafkaPublisher
// ---------------------------------------------------------------------------

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends each event as a JSON message keyed by record id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaPublisher{writer: w, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.RecordID),
		Value: value,
		Time:  evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
