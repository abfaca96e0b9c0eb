// Package events delivers near-real-time pipeline notifications to connected
// clients. Two interchangeable backends exist: an in-process registry for
// single-node deployments and a Postgres LISTEN/NOTIFY bridge for multi-node
// ones. Delivery is best effort and at most once per connection; a client
// that was offline when an event fired resyncs state after reconnecting.
package events

import (
	"context"
	"sync"

	"server/internal/domain"
)

// Publisher is the event fan-out contract. Publish never blocks the caller
// and never returns an error: job processing must not fail because a
// notification could not be sent.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
	Subscribe(ctx context.Context, userID string) (*Subscription, error)
	Close()
}

// Subscription is one client connection's event stream. The first event on C
// is always a synthetic connected event so clients can detect (re)attachment.
// C is closed when the subscription ends, whether by Close, context
// cancellation or a backend failure.
type Subscription struct {
	C <-chan domain.Event

	once   sync.Once
	cancel func()
}

func newSubscription(ch <-chan domain.Event, cancel func()) *Subscription {
	return &Subscription{C: ch, cancel: cancel}
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
