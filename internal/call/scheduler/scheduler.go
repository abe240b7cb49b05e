// Package scheduler resolves ring timeouts. A call that is still unanswered
// when its persisted deadline elapses is marked missed. Deadlines live in
// the database, not in process memory, so a restart loses nothing: the next
// sweep picks up whatever was armed before the crash.
package scheduler

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"abdiwave-backend/internal/call/repository"
	"abdiwave-backend/internal/events"
)

// RingTimeoutScheduler sweeps expired ring timeouts on a fixed interval
type RingTimeoutScheduler struct {
	timeouts  repository.TimeoutRepository
	calls     repository.CallRepository
	publisher events.Publisher
	interval  time.Duration
	stopChan  chan struct{}
	done      chan struct{}
}

// NewRingTimeoutScheduler creates a new scheduler sweeping at the given interval
func NewRingTimeoutScheduler(
	timeouts repository.TimeoutRepository,
	calls repository.CallRepository,
	publisher events.Publisher,
	interval time.Duration,
) *RingTimeoutScheduler {
	return &RingTimeoutScheduler{
		timeouts:  timeouts,
		calls:     calls,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *RingTimeoutScheduler) Start() {
	log.Infof("[RingTimeout] Starting sweep loop (interval: %s)", s.interval)

	go func() {
		defer close(s.done)

		// Run immediately on start to resolve anything armed before a restart
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Info("[RingTimeout] Sweep loop stopped")
				return
			}
		}
	}()
}

// Stop stops the scheduler and waits for an in-flight sweep to finish, so
// no fire is still mutating call records after Stop returns.
func (s *RingTimeoutScheduler) Stop() {
	close(s.stopChan)
	<-s.done
}

func (s *RingTimeoutScheduler) sweep() {
	ctx := context.Background()

	expired, err := s.timeouts.FindExpired(ctx, time.Now())
	if err != nil {
		log.Errorf("[RingTimeout] Error finding expired timeouts: %v", err)
		return
	}

	for _, timeout := range expired {
		s.fire(ctx, timeout.CallID)
	}
}

// fire resolves one expired timeout. The missed transition is a single
// atomic check-and-set against the call record: the receiver answering and
// the timeout firing race for the same row, and exactly one of them wins.
func (s *RingTimeoutScheduler) fire(ctx context.Context, callID string) {
	before, after, changed, err := s.calls.TransitionIfUnanswered(ctx, callID)
	if err != nil {
		if !errors.Is(err, repository.ErrCallNotFound) {
			log.Errorf("[RingTimeout] Error resolving call %s: %v", callID, err)
			return
		}
		log.Warnf("[RingTimeout] Call %s no longer exists, dropping timeout", callID)
	}

	// The row is consumed either way: fired, lost the race, or orphaned.
	if err := s.timeouts.Disarm(ctx, callID); err != nil {
		log.Errorf("[RingTimeout] Failed to disarm timeout for call %s: %v", callID, err)
	}

	if !changed {
		return
	}

	log.Infof("[RingTimeout] Call %s automatically marked as missed after timeout", callID)

	env, err := events.NewCallUpdated(before, after)
	if err != nil {
		log.Errorf("[RingTimeout] Failed to build event for call %s: %v", callID, err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		log.Errorf("[RingTimeout] Failed to publish update for call %s: %v", callID, err)
	}
}
