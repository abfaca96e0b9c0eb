package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

func recvEvent(t *testing.T, sub *Subscription) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.Event{}
}

func TestSubscribeYieldsConnectedFirst(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	defer p.Close()

	sub, err := p.Subscribe(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	ev := recvEvent(t, sub)
	if ev.Type != domain.EventTypeConnected {
		t.Fatalf("first event type = %s, want connected", ev.Type)
	}
	if ev.UserID != "user-1" {
		t.Fatalf("connected event user = %s", ev.UserID)
	}
}

func TestPublishRoutesToOwnerOnly(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	defer p.Close()

	alice, _ := p.Subscribe(context.Background(), "alice")
	bob, _ := p.Subscribe(context.Background(), "bob")
	defer alice.Close()
	defer bob.Close()
	recvEvent(t, alice)
	recvEvent(t, bob)

	p.Publish(context.Background(), domain.EntityChangeEvent("alice", domain.EntityTypeVoiceover, "v1", domain.ChangeUpdate))

	ev := recvEvent(t, alice)
	if ev.Type != domain.EventTypeEntityChange || ev.EntityID != "v1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	select {
	case ev := <-bob.C:
		t.Fatalf("bob received alice's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishFansOutToAllConnections(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	defer p.Close()

	first, _ := p.Subscribe(context.Background(), "alice")
	second, _ := p.Subscribe(context.Background(), "alice")
	defer first.Close()
	defer second.Close()
	recvEvent(t, first)
	recvEvent(t, second)

	p.Publish(context.Background(), domain.ActivityLoggedEvent("alice", "generate", domain.EntityTypePodcast, "p1"))

	if ev := recvEvent(t, first); ev.Type != domain.EventTypeActivityLogged {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev := recvEvent(t, second); ev.Type != domain.EventTypeActivityLogged {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDisconnectedSubscriberMissesEvents(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	defer p.Close()

	sub, _ := p.Subscribe(context.Background(), "alice")
	recvEvent(t, sub)
	sub.Close()

	// Published while nobody listens: no buffering, no replay.
	p.Publish(context.Background(), domain.EntityChangeEvent("alice", domain.EntityTypePodcast, "p1", domain.ChangeUpdate))

	again, err := p.Subscribe(context.Background(), "alice")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	defer again.Close()

	if ev := recvEvent(t, again); ev.Type != domain.EventTypeConnected {
		t.Fatalf("reconnect must start with connected, got %s", ev.Type)
	}
	select {
	case ev, ok := <-again.C:
		if ok {
			t.Fatalf("received replayed event: %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContextCancelReleasesSubscription(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := p.Subscribe(ctx, "alice")
	recvEvent(t, sub)

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed after context cancel")
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	dropped := 0
	p := NewMemoryPublisher(zerolog.Nop())
	p.OnDrop = func() { dropped++ }
	defer p.Close()

	sub, _ := p.Subscribe(context.Background(), "alice")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			p.Publish(context.Background(), domain.EntityChangeEvent("alice", domain.EntityTypePodcast, "p1", domain.ChangeUpdate))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if dropped == 0 {
		t.Fatal("expected overflow events to be dropped")
	}
}

func TestSubscribeAfterCloseFails(t *testing.T) {
	p := NewMemoryPublisher(zerolog.Nop())
	p.Close()
	if _, err := p.Subscribe(context.Background(), "alice"); err == nil {
		t.Fatal("expected subscribe on a closed publisher to fail")
	}
}
