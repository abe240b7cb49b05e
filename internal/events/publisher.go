package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher emits store-change envelopes for the notification handlers
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type pubsubPublisher struct {
	topic *pubsub.Topic
}

// NewPublisher creates a Publisher backed by a Pub/Sub topic
func NewPublisher(client *pubsub.Client, topicName string) Publisher {
	return &pubsubPublisher{topic: client.Topic(topicName)}
}

// NopPublisher discards every event. Used when the process runs without a
// Pub/Sub project configured; the callable entry points keep working, the
// trigger pipeline stays dark.
func NopPublisher() Publisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, env Envelope) error {
	return nil
}

func (p *pubsubPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", env.Kind, err)
	}
	return nil
}
