// Package events carries store-change envelopes between the write path and
// the notification handlers over Google Pub/Sub. Delivery is at-least-once;
// every handler must tolerate seeing the same envelope twice.
package events

import (
	"encoding/json"
	"fmt"

	calldomain "abdiwave-backend/internal/call/domain"
	chatdomain "abdiwave-backend/internal/chat/domain"
)

// Kind names the store mutation an envelope describes
type Kind string

const (
	KindCallCreated    Kind = "call.created"
	KindCallUpdated    Kind = "call.updated"
	KindMessageCreated Kind = "message.created"
)

// Envelope is the wire form of one store change: the kind plus before/after
// snapshots of the mutated record (before is absent for creations).
type Envelope struct {
	Kind   Kind            `json:"kind"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// NewCallCreated builds a call.created envelope from the stored record
func NewCallCreated(record *calldomain.CallRecord) (Envelope, error) {
	after, err := json.Marshal(record)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal call record: %w", err)
	}
	return Envelope{Kind: KindCallCreated, After: after}, nil
}

// NewCallUpdated builds a call.updated envelope from the before and after
// snapshots of the record
func NewCallUpdated(before, after *calldomain.CallRecord) (Envelope, error) {
	b, err := json.Marshal(before)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal call record: %w", err)
	}
	a, err := json.Marshal(after)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal call record: %w", err)
	}
	return Envelope{Kind: KindCallUpdated, Before: b, After: a}, nil
}

// NewMessageCreated builds a message.created envelope from the stored message
func NewMessageCreated(msg *chatdomain.Message) (Envelope, error) {
	after, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	return Envelope{Kind: KindMessageCreated, After: after}, nil
}
