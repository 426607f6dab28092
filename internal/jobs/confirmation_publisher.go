// Package jobs publishes background work for downstream workers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/Genoux/website/internal/services"
)

// PubSubConfirmationPublisher publishes paid-registration confirmations to a
// Pub/Sub topic consumed by the email sender.
type PubSubConfirmationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.ConfirmationPublisher = (*PubSubConfirmationPublisher)(nil)

// NewPubSubConfirmationPublisher constructs a Pub/Sub backed confirmation publisher.
func NewPubSubConfirmationPublisher(topic *pubsub.Topic) (*PubSubConfirmationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub confirmation publisher: topic is required")
	}
	return &PubSubConfirmationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishConfirmation enqueues one confirmation and waits for the server id.
func (p *PubSubConfirmationPublisher) PublishConfirmation(ctx context.Context, message services.ConfirmationMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub confirmation publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal confirmation: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "registrationId", message.RegistrationID)
	setAttr(attrs, "eventId", message.EventID)
	setAttr(attrs, "locale", message.Locale)
	setAttr(attrs, "idempotencyKey", message.IdempotencyKey)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish confirmation: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubConfirmationPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

// EnsureTopic returns the topic, creating it when missing. Used against the
// emulator where topics are not provisioned ahead of time.
func EnsureTopic(ctx context.Context, client *pubsub.Client, id string) (*pubsub.Topic, error) {
	if client == nil {
		return nil, errors.New("pubsub: client is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("pubsub: topic id is required")
	}
	topic := client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", id, err)
	}
	if exists {
		return topic, nil
	}
	created, err := client.CreateTopic(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create topic %s: %w", id, err)
	}
	return created, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
