package events_test

import (
	"testing"

	"github.com/conductor-dev/conductor/internal/events"
)

func TestBus_EmitFansOutToEverySubscriber(t *testing.T) {
	bus := events.New()
	ch1, unsub1 := bus.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(4)
	defer unsub2()

	if n := bus.SubscriberCount(); n != 2 {
		t.Fatalf("subscriber count = %d, want 2", n)
	}

	bus.Emit(events.Event{Kind: events.KindWorktreeCreated, WorktreeID: "wt-1"})

	for _, ch := range []chan events.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Kind != events.KindWorktreeCreated || ev.WorktreeID != "wt-1" {
				t.Errorf("got event %+v", ev)
			}
		default:
			t.Error("expected a buffered event, channel was empty")
		}
	}
}

func TestBus_EmitWithNoSubscribersDoesNotBlock(t *testing.T) {
	bus := events.New()
	bus.Emit(events.Event{Kind: events.KindRepoAdded})
}

func TestBus_EmitOnFullBufferDoesNotBlockOrGrowQueue(t *testing.T) {
	bus := events.New()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Emit(events.Event{Kind: events.KindAgentStarted, AgentRunID: "run-1"})
	// Buffer is now full (capacity 1). A second Emit must return without
	// blocking, and since there is no free slot for a lagged marker either,
	// it is dropped rather than queued.
	bus.Emit(events.Event{Kind: events.KindAgentCompleted, AgentRunID: "run-1"})

	first := <-ch
	if first.Kind != events.KindAgentStarted {
		t.Fatalf("first event = %+v, want KindAgentStarted", first)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected second event %+v, channel should be drained", extra)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := events.New()
	ch, unsub := bus.Subscribe(1)
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after unsubscribe")
	}
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("subscriber count after unsubscribe = %d, want 0", n)
	}
}
