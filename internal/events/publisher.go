package events

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shubhamkumar-dianapps/Ecommerce/internal/kafka"
)

// Publisher membungkus producer + envelope v1. Nil publisher = no-op,
// supaya service tetap jalan tanpa Kafka (mis. di test).
type Publisher struct {
	Producer *kafkax.Producer
	Service  string
}

func (p *Publisher) Emit(topic, eventType, correlationID, traceID string, payload any) {
	if p == nil || p.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Producer.Publish(topic, PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
