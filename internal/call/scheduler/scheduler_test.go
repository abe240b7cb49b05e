package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"abdiwave-backend/internal/call/domain"
	"abdiwave-backend/internal/call/repository"
	"abdiwave-backend/internal/events"
)

type fakeTimeouts struct {
	expired  []domain.RingTimeout
	disarmed []string
}

func (f *fakeTimeouts) Arm(ctx context.Context, callID string, deadline time.Time) error {
	return nil
}

func (f *fakeTimeouts) Disarm(ctx context.Context, callID string) error {
	f.disarmed = append(f.disarmed, callID)
	return nil
}

func (f *fakeTimeouts) FindExpired(ctx context.Context, now time.Time) ([]domain.RingTimeout, error) {
	return f.expired, nil
}

type fakeCalls struct {
	before  *domain.CallRecord
	after   *domain.CallRecord
	changed bool
	err     error
	fired   []string
}

func (f *fakeCalls) Create(ctx context.Context, record *domain.CallRecord) error { return nil }

func (f *fakeCalls) FindByID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	return nil, nil
}

func (f *fakeCalls) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, *domain.CallRecord, error) {
	return nil, nil, nil
}

func (f *fakeCalls) MarkNotificationSent(ctx context.Context, callID string) error { return nil }

func (f *fakeCalls) TransitionIfUnanswered(ctx context.Context, callID string) (*domain.CallRecord, *domain.CallRecord, bool, error) {
	f.fired = append(f.fired, callID)
	return f.before, f.after, f.changed, f.err
}

type fakePublisher struct {
	published []events.Envelope
}

func (f *fakePublisher) Publish(ctx context.Context, env events.Envelope) error {
	f.published = append(f.published, env)
	return nil
}

func missedPair() (*domain.CallRecord, *domain.CallRecord) {
	before := &domain.CallRecord{
		CallID:     "call-1",
		CallerID:   "A",
		ReceiverID: "B",
		ChannelID:  "c1",
		Status:     domain.CallStatusRinging,
	}
	after := *before
	after.Status = domain.CallStatusMissed
	return before, &after
}

func TestFireMarksMissedAndPublishes(t *testing.T) {
	before, after := missedPair()
	calls := &fakeCalls{before: before, after: after, changed: true}
	timeouts := &fakeTimeouts{}
	publisher := &fakePublisher{}

	s := NewRingTimeoutScheduler(timeouts, calls, publisher, time.Second)
	s.fire(context.Background(), "call-1")

	if len(calls.fired) != 1 || calls.fired[0] != "call-1" {
		t.Errorf("fired = %v", calls.fired)
	}
	if len(timeouts.disarmed) != 1 || timeouts.disarmed[0] != "call-1" {
		t.Errorf("disarmed = %v, the fired row must be consumed", timeouts.disarmed)
	}
	if len(publisher.published) != 1 || publisher.published[0].Kind != events.KindCallUpdated {
		t.Fatalf("published = %+v, want one call.updated event", publisher.published)
	}
}

func TestFireLosesRaceToAnswer(t *testing.T) {
	answered := &domain.CallRecord{CallID: "call-1", Status: domain.CallStatusActive}
	calls := &fakeCalls{before: answered, changed: false}
	timeouts := &fakeTimeouts{}
	publisher := &fakePublisher{}

	s := NewRingTimeoutScheduler(timeouts, calls, publisher, time.Second)
	s.fire(context.Background(), "call-1")

	if len(timeouts.disarmed) != 1 {
		t.Error("a lost race must still consume the timeout row")
	}
	if len(publisher.published) != 0 {
		t.Error("an answered call must not publish a missed update")
	}
}

func TestFireToleratesDeletedCall(t *testing.T) {
	calls := &fakeCalls{err: repository.ErrCallNotFound}
	timeouts := &fakeTimeouts{}
	publisher := &fakePublisher{}

	s := NewRingTimeoutScheduler(timeouts, calls, publisher, time.Second)
	s.fire(context.Background(), "ghost")

	if len(timeouts.disarmed) != 1 || timeouts.disarmed[0] != "ghost" {
		t.Error("an orphaned timeout must be dropped")
	}
	if len(publisher.published) != 0 {
		t.Error("nothing to publish for a deleted call")
	}
}

// blockingTimeouts stalls the first sweep until released so the test can
// observe Stop waiting on it.
type blockingTimeouts struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingTimeouts() *blockingTimeouts {
	return &blockingTimeouts{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingTimeouts) Arm(ctx context.Context, callID string, deadline time.Time) error {
	return nil
}

func (b *blockingTimeouts) Disarm(ctx context.Context, callID string) error { return nil }

func (b *blockingTimeouts) FindExpired(ctx context.Context, now time.Time) ([]domain.RingTimeout, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil, nil
}

func TestStopWaitsForInFlightSweep(t *testing.T) {
	timeouts := newBlockingTimeouts()
	s := NewRingTimeoutScheduler(timeouts, &fakeCalls{}, &fakePublisher{}, time.Hour)

	s.Start()
	<-timeouts.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(timeouts.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned after the sweep finished")
	}
}

func TestSweepFiresEveryExpiredTimeout(t *testing.T) {
	before, after := missedPair()
	calls := &fakeCalls{before: before, after: after, changed: true}
	timeouts := &fakeTimeouts{expired: []domain.RingTimeout{
		{CallID: "call-1"},
		{CallID: "call-2"},
	}}

	s := NewRingTimeoutScheduler(timeouts, calls, &fakePublisher{}, time.Second)
	s.sweep()

	if len(calls.fired) != 2 {
		t.Errorf("fired = %v, want both expired calls", calls.fired)
	}
}
