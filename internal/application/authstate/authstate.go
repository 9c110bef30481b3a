package authstate

import "sync"

// Event is an identity-state transition reported by the identity provider
// collaborator.
type Event int

const (
	SignedIn Event = iota
	SignedOut
	Recovered
)

func (e Event) String() string {
	switch e {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Recovered:
		return "recovered"
	}
	return "unknown"
}

// Change carries one transition and the identity it applies to. OwnerID is
// empty for SignedOut.
type Change struct {
	Event   Event
	OwnerID string
}

// Notifier is an explicit subscription/notification channel for auth-state
// callbacks, decoupled from any storage backend.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]func(Change)
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Change))}
}

// Subscribe registers a callback and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (n *Notifier) Subscribe(fn func(Change)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify delivers the change to every subscriber. Callbacks run outside the
// lock so a subscriber may unsubscribe from within its callback.
func (n *Notifier) Notify(c Change) {
	n.mu.Lock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
