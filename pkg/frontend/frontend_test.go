package frontend

import (
	"context"
	"testing"
	"time"

	"github.com/nimbuskv/broker/pkg/backend/memory"
	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
	"github.com/nimbuskv/broker/pkg/storeactor"
)

func newTestFrontend(t *testing.T) *Frontend {
	t.Helper()
	b := bus.New(32)
	a := storeactor.NewMaster("S", memory.New(), b, ids.EntityID{Object: "master-1"}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	t.Cleanup(func() { cancel(); a.Stop(); b.Close() })
	return New(a, ids.EntityID{Object: ids.NewActorID()}, 2*time.Second)
}

func TestFrontendPutGet(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	f.Put(ctx, data.String("a"), data.Int(1), nil)

	deadline := time.After(time.Second)
	for {
		res := f.Get(ctx, data.String("a"))
		if res.IsOk() && res.Value.Equal(data.Int(1)) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("put never visible: %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFrontendGetMissingKeyTimesOutNever(t *testing.T) {
	f := newTestFrontend(t)
	res := f.Get(context.Background(), data.String("missing"))
	if res.IsOk() || res.Err.Kind != brokererr.KindNoSuchKey {
		t.Fatalf("expected no_such_key (not a timeout), got %+v", res)
	}
}

func TestFrontendPutUniqueOneWinner(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	first := f.PutUnique(ctx, data.String("k"), data.String("A"), nil)
	second := f.PutUnique(ctx, data.String("k"), data.String("B"), nil)

	if !first.IsOk() || !first.Value.Bool() {
		t.Fatalf("expected first put_unique to win, got %+v", first)
	}
	if !second.IsOk() || second.Value.Bool() {
		t.Fatalf("expected second put_unique to lose, got %+v", second)
	}
}

func TestFrontendIncrementAndDecrement(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	f.Increment(ctx, data.String("n"), data.Count(5), data.KindCount, nil)

	deadline := time.After(time.Second)
	for {
		res := f.Get(ctx, data.String("n"))
		if res.IsOk() && res.Value.Equal(data.Count(5)) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("increment never applied: %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}

	f.Decrement(ctx, data.String("n"), data.Count(2), nil)
	deadline = time.After(time.Second)
	for {
		res := f.Get(ctx, data.String("n"))
		if res.IsOk() && res.Value.Equal(data.Count(3)) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("decrement never applied: %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFrontendPushAndPop(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	f.Push(ctx, data.String("v"), data.Int(1), nil)
	f.Push(ctx, data.String("v"), data.Int(2), nil)

	deadline := time.After(time.Second)
	for {
		res := f.Get(ctx, data.String("v"))
		if res.IsOk() && len(res.Value.Vector()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("pushes never applied: %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}

	f.Pop(ctx, data.String("v"), nil)
	deadline = time.After(time.Second)
	for {
		res := f.Get(ctx, data.String("v"))
		if res.IsOk() && len(res.Value.Vector()) == 1 && res.Value.Vector()[0].Equal(data.Int(1)) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("pop never applied: %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
