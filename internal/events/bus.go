// Package events provides an in-process, multiproducer/multiconsumer
// broadcast of lifecycle events to HTTP/SSE subscribers.
package events

import "sync"

// Kind discriminates the lifecycle transition an Event reports.
type Kind string

const (
	KindRepoAdded        Kind = "repo_added"
	KindRepoRemoved      Kind = "repo_removed"
	KindWorktreeCreated  Kind = "worktree_created"
	KindWorktreeDeleted  Kind = "worktree_deleted"
	KindTicketSynced     Kind = "ticket_synced"
	KindTicketSyncFailed Kind = "ticket_sync_failed"
	KindSessionStarted   Kind = "session_started"
	KindSessionEnded     Kind = "session_ended"
	KindAgentStarted     Kind = "agent_started"
	KindAgentCompleted   Kind = "agent_completed"
	KindAgentFailed      Kind = "agent_failed"
	KindAgentCancelled   Kind = "agent_cancelled"
	// KindLagged marks a dropped event for a subscriber whose buffer filled:
	// on receipt, the subscriber must refetch baseline state rather than
	// trust its event-derived view. Emit delivers it only when a buffer slot
	// frees up between its two sends (see Bus and Emit).
	KindLagged Kind = "lagged"
)

// Event is a single lifecycle transition, carrying whichever ids are
// relevant to its Kind. Fields not relevant to a given Kind are left zero.
type Event struct {
	Kind       Kind
	RepoID     string
	WorktreeID string
	TicketID   string
	SessionID  string
	AgentRunID string
}

// Bus fans mutations out to any number of subscribers. Emit never blocks: a
// subscriber whose buffer is full does not receive the event. Emit then tries
// a non-blocking KindLagged send to the same buffer, which lands only if the
// subscriber drained a slot in between; otherwise the event is dropped with
// no marker.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]bool
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[chan Event]bool)}
}

// Subscribe registers a new subscriber with the given buffer size, returning
// the channel to read from and an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (ch chan Event, unsubscribe func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch = make(chan Event, buffer)

	b.mu.Lock()
	b.subscribers[ch] = true
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
}

// Emit publishes ev to every current subscriber in publication order. If
// there are no subscribers, the event is silently dropped. A subscriber
// whose channel is full is sent a KindLagged event instead, non-blockingly;
// if even that would block, the subscriber is simply skipped for this tick.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case ch <- Event{Kind: KindLagged}:
			default:
			}
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
