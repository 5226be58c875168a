// Package events publishes ledger changes and consumes capacity-release
// commands over Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"metro/pkg/kafka"
	"metro/pkg/logger"
	"metro/pkg/model"
)

const (
	EventBookingCommitted  = "booking.committed"
	EventBookingWaitlisted = "booking.waitlisted"
	EventBookingPromoted   = "booking.promoted"

	SchemaVersion = "1"
	Source        = "metro-booking"

	// All ledger events share one key so they stay ordered on a single
	// partition.
	ledgerKey = "metro-ledger"
)

type Publisher interface {
	Committed(ctx context.Context, tickets []model.TicketRecord, available int) error
	Waitlisted(ctx context.Context, passengers []model.Passenger, available int) error
	Promoted(ctx context.Context, tickets []model.TicketRecord, available int) error
}

// LedgerEvent is the payload of every booking event.
type LedgerEvent struct {
	Type       string               `json:"type"`
	Tickets    []model.TicketRecord `json:"tickets,omitempty"`
	Passengers []model.Passenger    `json:"passengers,omitempty"`
	Available  int                  `json:"available"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	now      func() time.Time
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, now: time.Now}
}

func (p *KafkaPublisher) Committed(ctx context.Context, tickets []model.TicketRecord, available int) error {
	if len(tickets) == 0 {
		return nil
	}
	return p.publish(ctx, LedgerEvent{Type: EventBookingCommitted, Tickets: tickets, Available: available})
}

func (p *KafkaPublisher) Waitlisted(ctx context.Context, passengers []model.Passenger, available int) error {
	if len(passengers) == 0 {
		return nil
	}
	return p.publish(ctx, LedgerEvent{Type: EventBookingWaitlisted, Passengers: passengers, Available: available})
}

func (p *KafkaPublisher) Promoted(ctx context.Context, tickets []model.TicketRecord, available int) error {
	if len(tickets) == 0 {
		return nil
	}
	return p.publish(ctx, LedgerEvent{Type: EventBookingPromoted, Tickets: tickets, Available: available})
}

func (p *KafkaPublisher) publish(ctx context.Context, event LedgerEvent) error {
	event.OccurredAt = p.now().UTC()

	msg, err := kafka.NewMessage().
		WithKey(ledgerKey).
		WithValue(event).
		WithEventType(event.Type).
		WithCorrelationID(logger.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", event.Type, err)
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Committed(context.Context, []model.TicketRecord, int) error { return nil }
func (NopPublisher) Waitlisted(context.Context, []model.Passenger, int) error   { return nil }
func (NopPublisher) Promoted(context.Context, []model.TicketRecord, int) error  { return nil }
