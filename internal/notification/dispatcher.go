package notification

import (
	"context"

	log "github.com/sirupsen/logrus"

	"abdiwave-backend/pkg/fcm"
)

// Sender fans a payload out to a batch of device tokens. Implemented by
// pkg/fcm; faked in tests.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, payload *fcm.Payload) (*fcm.SendResult, error)
}

// TokenCleaner removes confirmed-dead tokens from a user's set
type TokenCleaner interface {
	RemoveTokens(ctx context.Context, userID string, tokens []string) error
}

// Dispatcher sends composed payloads to a user's token set and repairs the
// set from per-token delivery feedback. Dispatch is a best-effort side
// channel: partial failure never reaches the caller.
type Dispatcher struct {
	sender Sender
	tokens TokenCleaner
}

// NewDispatcher creates a Dispatcher. A nil sender disables push delivery
// (every dispatch becomes a logged no-op), which keeps the rest of the
// pipeline running without Firebase credentials.
func NewDispatcher(sender Sender, tokens TokenCleaner) *Dispatcher {
	return &Dispatcher{sender: sender, tokens: tokens}
}

// Dispatch sends the payload to every token and schedules cleanup for the
// permanently-invalid ones. An empty token set is a successful no-op. An
// error is returned only when the whole batch could not be attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, tokens []string, payload *fcm.Payload) (*fcm.SendResult, error) {
	if len(tokens) == 0 {
		log.Infof("[Dispatch] No tokens for user %s, skipping", userID)
		return &fcm.SendResult{}, nil
	}
	if d.sender == nil {
		log.Warn("[Dispatch] Push delivery disabled, skipping")
		return &fcm.SendResult{}, nil
	}

	result, err := d.sender.SendMulticast(ctx, tokens, payload)
	if err != nil {
		return nil, err
	}

	var invalid []string
	for _, outcome := range result.Outcomes {
		if outcome.Err == nil {
			continue
		}
		if outcome.Permanent {
			invalid = append(invalid, outcome.Token)
		} else {
			log.Warnf("[Dispatch] Transient failure for user %s: %v", userID, outcome.Err)
		}
	}

	if len(invalid) > 0 {
		// Fire-and-forget: the caller never blocks on cleanup.
		go d.cleanup(userID, invalid)
	}

	return result, nil
}

func (d *Dispatcher) cleanup(userID string, tokens []string) {
	log.Infof("[Dispatch] Removing %d invalid tokens for user %s", len(tokens), userID)
	if err := d.tokens.RemoveTokens(context.Background(), userID, tokens); err != nil {
		log.Errorf("[Dispatch] Failed to remove invalid tokens for user %s: %v", userID, err)
	}
}
