package usecase

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"abdiwave-backend/internal/call/domain"
	"abdiwave-backend/internal/call/repository"
	"abdiwave-backend/internal/notification"
	userrepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/fcm"
)

// Dispatcher fans a payload out to a user's token set
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, tokens []string, payload *fcm.Payload) (*fcm.SendResult, error)
}

// Watcher reacts to call-record lifecycle events: it rings the receiver's
// devices on creation, arms the ring timeout, and tells the caller's client
// how the call resolved. Events arrive at-least-once, so every step here is
// idempotent; running the same event twice produces at worst one extra push.
type Watcher struct {
	calls       repository.CallRepository
	timeouts    repository.TimeoutRepository
	fcmRepo     userrepo.FCMTokenRepository
	dispatcher  Dispatcher
	ringTimeout time.Duration
	now         func() time.Time
}

// NewWatcher creates a Watcher with the given ring-timeout window
func NewWatcher(
	calls repository.CallRepository,
	timeouts repository.TimeoutRepository,
	fcmRepo userrepo.FCMTokenRepository,
	dispatcher Dispatcher,
	ringTimeout time.Duration,
) *Watcher {
	return &Watcher{
		calls:       calls,
		timeouts:    timeouts,
		fcmRepo:     fcmRepo,
		dispatcher:  dispatcher,
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
}

// OnCallCreated handles a newly created call record. Only calls created in a
// pre-answer state ring the receiver; anything else is ignored.
func (w *Watcher) OnCallCreated(ctx context.Context, record *domain.CallRecord) {
	if record.Status != domain.CallStatusDialing && record.Status != domain.CallStatusRinging {
		log.Infof("[CallWatcher] Call %s is not a new ringing call, skipping", record.CallID)
		return
	}
	if record.CallerID == "" || record.ReceiverID == "" || record.ChannelID == "" {
		log.Warnf("[CallWatcher] Call %s is missing essential data, skipping", record.CallID)
		return
	}

	deadline := w.now().Add(w.ringTimeout)

	if record.NotificationSent {
		// Redelivered event. The push already went out; just make sure the
		// timeout ends up armed in case the first run died before arming.
		if err := w.timeouts.Arm(ctx, record.CallID, deadline); err != nil {
			log.Errorf("[CallWatcher] Failed to arm timeout for call %s: %v", record.CallID, err)
		}
		return
	}

	w.notifyReceiver(ctx, record)

	if err := w.timeouts.Arm(ctx, record.CallID, deadline); err != nil {
		log.Errorf("[CallWatcher] Failed to arm timeout for call %s: %v", record.CallID, err)
	}
}

func (w *Watcher) notifyReceiver(ctx context.Context, record *domain.CallRecord) {
	tokens, err := w.listTokens(ctx, record.ReceiverID)
	if err != nil {
		log.Errorf("[CallWatcher] Failed to load tokens for receiver %s: %v", record.ReceiverID, err)
		return
	}
	if len(tokens) == 0 {
		log.Infof("[CallWatcher] Receiver %s has no FCM tokens, skipping notification", record.ReceiverID)
		return
	}

	payload := notification.IncomingCall(record, w.now())
	result, err := w.dispatcher.Dispatch(ctx, record.ReceiverID, tokens, payload)
	if err != nil {
		log.Errorf("[CallWatcher] Failed to send call notification for %s: %v", record.CallID, err)
		return
	}
	log.Infof("[CallWatcher] Sent call notification for %s to %d of %d devices",
		record.CallID, result.SuccessCount, len(tokens))

	if err := w.calls.MarkNotificationSent(ctx, record.CallID); err != nil {
		log.Errorf("[CallWatcher] Failed to mark notification sent for %s: %v", record.CallID, err)
	}
}

// OnCallUpdated handles a status change on an existing call. Mutations that
// leave the status untouched are ignored. Any real transition disarms the
// ring timeout; terminal transitions additionally push a silent status
// update to the caller's devices.
func (w *Watcher) OnCallUpdated(ctx context.Context, before, after *domain.CallRecord) {
	if before.Status == after.Status {
		return
	}

	// Disarm-after-fire and disarm-before-arm are both legal no-ops.
	if err := w.timeouts.Disarm(ctx, after.CallID); err != nil {
		log.Errorf("[CallWatcher] Failed to disarm timeout for call %s: %v", after.CallID, err)
	}

	if !after.Status.Terminal() {
		return
	}

	tokens, err := w.listTokens(ctx, after.CallerID)
	if err != nil {
		log.Errorf("[CallWatcher] Failed to load tokens for caller %s: %v", after.CallerID, err)
		return
	}
	if len(tokens) == 0 {
		log.Infof("[CallWatcher] Caller %s has no FCM tokens, skipping status update", after.CallerID)
		return
	}

	payload := notification.CallStatus(after, w.now())
	if _, err := w.dispatcher.Dispatch(ctx, after.CallerID, tokens, payload); err != nil {
		log.Errorf("[CallWatcher] Failed to send status update for %s: %v", after.CallID, err)
		return
	}
	log.Infof("[CallWatcher] Sent call status update to caller %s, status: %s", after.CallerID, after.Status)
}

func (w *Watcher) listTokens(ctx context.Context, userID string) ([]string, error) {
	records, err := w.fcmRepo.GetTokensByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(records))
	for _, t := range records {
		tokens = append(tokens, t.Token)
	}
	return tokens, nil
}
