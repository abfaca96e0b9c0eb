package events

import (
	"context"
	"sync"

	"server/internal/domain"
	"server/internal/infra"
)

const subscriberBuffer = 32

// MemoryPublisher is the single-node backend: a per-user multicast registry
// owned by the server process's lifecycle. It is constructed at startup and
// injected; nothing reaches it as ambient global state.
type MemoryPublisher struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
	logger infra.Logger

	// OnDrop is invoked when a full subscriber channel forces an event to be
	// discarded. Wired to a metrics counter at the composition root.
	OnDrop func()
}

type memorySub struct {
	userID string
	ch     chan domain.Event
}

func NewMemoryPublisher(logger infra.Logger) *MemoryPublisher {
	return &MemoryPublisher{
		subs:   make(map[string]map[*memorySub]struct{}),
		logger: logger,
	}
}

// Publish delivers the event to every open subscription owned by the event's
// user. Slow subscribers lose events rather than block the publisher. Sends
// happen under the registry lock so a concurrent unsubscribe cannot close a
// channel mid-send; they are non-blocking, so the lock is never held up by a
// stalled consumer.
func (p *MemoryPublisher) Publish(ctx context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs[event.UserID] {
		select {
		case sub.ch <- event:
		default:
			p.logger.Warn().
				Str("user_id", event.UserID).
				Str("event_type", string(event.Type)).
				Msg("events: subscriber channel full, dropping event")
			if p.OnDrop != nil {
				p.OnDrop()
			}
		}
	}
}

// Subscribe registers a new per-connection channel and immediately queues the
// synthetic connected event.
func (p *MemoryPublisher) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	sub := &memorySub{userID: userID, ch: make(chan domain.Event, subscriberBuffer)}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.NewError(domain.KindConflict, "event publisher is shut down")
	}
	if p.subs[userID] == nil {
		p.subs[userID] = make(map[*memorySub]struct{})
	}
	p.subs[userID][sub] = struct{}{}
	sub.ch <- domain.ConnectedEvent(userID)
	p.mu.Unlock()

	s := newSubscription(sub.ch, func() { p.remove(sub) })
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s, nil
}

func (p *MemoryPublisher) remove(sub *memorySub) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.subs[sub.userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(p.subs, sub.userID)
	}
	close(sub.ch)
}

// Close tears down every open subscription.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, set := range p.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	p.subs = make(map[string]map[*memorySub]struct{})
}

var _ Publisher = (*MemoryPublisher)(nil)
