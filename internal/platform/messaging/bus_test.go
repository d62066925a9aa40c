package messaging

import (
	"context"
	"testing"
	"time"

	"engagement/contexts/community-experience/engagement-engine/ports"
)

func TestBusDeliversToSubscribersOfTopic(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ports.EventEnvelope, 1)
	if err := bus.Subscribe(ctx, "engagement.poll.changed", "test", func(_ context.Context, event ports.EventEnvelope) error {
		got <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "engagement.like.changed", ports.EventEnvelope{EventID: "ignored"}); err != nil {
		t.Fatalf("publish other topic: %v", err)
	}
	if err := bus.Publish(ctx, "engagement.poll.changed", ports.EventEnvelope{EventID: "evt_1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-got:
		if event.EventID != "evt_1" {
			t.Fatalf("expected evt_1, got %s", event.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusRemovesSubscriberOnCancel(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := bus.Subscribe(ctx, "topic", "test", func(context.Context, ports.EventEnvelope) error { return nil }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if bus.Subscribers("topic") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for bus.Subscribers("topic") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBusDropsWhenSubscriberBufferIsFull(t *testing.T) {
	bus := NewBusWithBuffer(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan string, 3)
	release := make(chan struct{})
	if err := bus.Subscribe(ctx, "topic", "test", func(_ context.Context, event ports.EventEnvelope) error {
		entered <- event.EventID
		<-release
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = bus.Publish(ctx, "topic", ports.EventEnvelope{EventID: "first"})
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first event was not delivered")
	}
	// handler is blocked: one event fits the buffer, the next is dropped
	_ = bus.Publish(ctx, "topic", ports.EventEnvelope{EventID: "second"})
	_ = bus.Publish(ctx, "topic", ports.EventEnvelope{EventID: "third"})
	close(release)

	select {
	case id := <-entered:
		if id != "second" {
			t.Fatalf("expected buffered event second, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("buffered event was not delivered")
	}
	select {
	case id := <-entered:
		t.Fatalf("expected third to be dropped, got %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}
