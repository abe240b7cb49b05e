package events

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	log "github.com/sirupsen/logrus"

	calldomain "abdiwave-backend/internal/call/domain"
	chatdomain "abdiwave-backend/internal/chat/domain"
)

// Handlers routes decoded envelopes to the notification pipeline. Handlers
// run to completion independently; any error stays inside the handler, so a
// poison envelope can never loop forever on redelivery.
type Handlers struct {
	OnCallCreated    func(ctx context.Context, record *calldomain.CallRecord)
	OnCallUpdated    func(ctx context.Context, before, after *calldomain.CallRecord)
	OnMessageCreated func(ctx context.Context, msg *chatdomain.Message)
}

// Subscriber consumes the store-events subscription and dispatches each
// envelope to its handler
type Subscriber struct {
	client    *pubsub.Client
	topicName string
	subName   string
	handlers  Handlers
}

// NewSubscriber creates a Subscriber for the given topic. The subscription
// name follows the topic-sub convention.
func NewSubscriber(client *pubsub.Client, topicName string, handlers Handlers) *Subscriber {
	return &Subscriber{
		client:    client,
		topicName: topicName,
		subName:   topicName + "-sub",
		handlers:  handlers,
	}
}

// Start blocks receiving envelopes until ctx is cancelled. The subscription
// is created on first run if it does not exist yet.
func (s *Subscriber) Start(ctx context.Context) {
	log.Infof("[Events] Starting subscriber on topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Errorf("[Events] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.client.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Errorf("[Events] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Errorf("[Events] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Errorf("[Events] Failed to create subscription: %v", err)
			return
		}
		log.Infof("[Events] Created subscription: %s", s.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handle(ctx, msg.Data)
		// Ack unconditionally: failed handlers log and swallow, and the
		// store's own redelivery is the only retry mechanism we honor.
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		log.Errorf("[Events] Error receiving messages: %v", err)
	}
}

func (s *Subscriber) handle(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Errorf("[Events] Failed to unmarshal envelope: %v", err)
		return
	}

	switch env.Kind {
	case KindCallCreated:
		if s.handlers.OnCallCreated == nil {
			return
		}
		var record calldomain.CallRecord
		if err := json.Unmarshal(env.After, &record); err != nil {
			log.Errorf("[Events] Failed to unmarshal call record: %v", err)
			return
		}
		s.handlers.OnCallCreated(ctx, &record)

	case KindCallUpdated:
		if s.handlers.OnCallUpdated == nil {
			return
		}
		var before, after calldomain.CallRecord
		if err := json.Unmarshal(env.Before, &before); err != nil {
			log.Errorf("[Events] Failed to unmarshal call record: %v", err)
			return
		}
		if err := json.Unmarshal(env.After, &after); err != nil {
			log.Errorf("[Events] Failed to unmarshal call record: %v", err)
			return
		}
		s.handlers.OnCallUpdated(ctx, &before, &after)

	case KindMessageCreated:
		if s.handlers.OnMessageCreated == nil {
			return
		}
		var msg chatdomain.Message
		if err := json.Unmarshal(env.After, &msg); err != nil {
			log.Errorf("[Events] Failed to unmarshal message: %v", err)
			return
		}
		s.handlers.OnMessageCreated(ctx, &msg)

	default:
		log.Warnf("[Events] Unknown event kind: %s", env.Kind)
	}
}
