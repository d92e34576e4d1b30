package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bahodir0902/blogclient/ports"
	"github.com/google/uuid"
)

const (
	// TopicSessionUpdated carries a SessionEvent whenever the access
	// credential changes (login, SetCredentials, successful renewal).
	TopicSessionUpdated = "session.updated"

	// TopicSessionCleared carries a SessionEvent whenever the session is torn
	// down (logout or terminal renewal failure).
	TopicSessionCleared = "session.cleared"
)

// SessionEvent is the payload published on both session topics.
type SessionEvent struct {
	Access string    `json:"access,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface on top of any
// Watermill publisher: a gochannel Pub/Sub in-process, or a Redis stream when
// several processes share one session.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishUpdated publishes a session.updated event.
func (p *WatermillPublisher) PublishUpdated(ctx context.Context, access string) error {
	return p.publish(TopicSessionUpdated, SessionEvent{Access: access, At: time.Now()})
}

// PublishCleared publishes a session.cleared event.
func (p *WatermillPublisher) PublishCleared(ctx context.Context, reason string) error {
	return p.publish(TopicSessionCleared, SessionEvent{Reason: reason, At: time.Now()})
}

func (p *WatermillPublisher) publish(topic string, event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)
