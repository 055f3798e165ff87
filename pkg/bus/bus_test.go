package bus

import (
	"context"
	"testing"
	"time"

	"github.com/nimbuskv/broker/pkg/data"
)

func TestPublishSubscribe(t *testing.T) {
	b := New(4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, "store_events/inventory")
	b.Publish(ctx, "store_events/inventory", data.String("event-1"))

	select {
	case got := <-ch:
		if !got.Equal(data.String("event-1")) {
			t.Fatalf("got %v, want event-1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishNoSubscribersDoesNotBlock(t *testing.T) {
	b := New(4)
	defer b.Close()
	b.Publish(context.Background(), "nobody/listening", data.Int(1))
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	b := New(4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, "topic")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	b := New(1)
	defer b.Close()
	ctx := context.Background()

	ch := b.Subscribe(ctx, "topic")
	b.Publish(ctx, "topic", data.Int(1))
	b.Publish(ctx, "topic", data.Int(2))

	got := <-ch
	if !got.Equal(data.Int(2)) {
		t.Fatalf("expected newest event to survive, got %v", got)
	}
}
