package storeactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nimbuskv/broker/pkg/backend/memory"
	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

func newTestMaster(t *testing.T, tickInterval time.Duration) (*Actor, context.CancelFunc) {
	t.Helper()
	b := bus.New(32)
	a := NewMaster("S", memory.New(), b, ids.EntityID{Object: "master-1"}, tickInterval, nil)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	t.Cleanup(func() { cancel(); a.Stop(); b.Close() })
	return a, cancel
}

func doSync(t *testing.T, a *Actor, req Request) brokererr.Expected[data.Value] {
	t.Helper()
	req.ReplyTo = make(chan brokererr.Expected[data.Value], 1)
	a.Submit(context.Background(), req)
	select {
	case res := <-req.ReplyTo:
		return res
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for reply")
		return brokererr.Expected[data.Value]{}
	}
}

// TestBasicPutGet covers scenario S1.
func TestBasicPutGet(t *testing.T) {
	a, _ := newTestMaster(t, time.Hour)

	res := doSync(t, a, Request{Op: OpPut, Key: data.String("a"), Value: data.Int(1)})
	if !res.IsOk() {
		t.Fatalf("put failed: %v", res.Err)
	}

	res = doSync(t, a, Request{Op: OpGet, Key: data.String("a")})
	if !res.IsOk() || !res.Value.Equal(data.Int(1)) {
		t.Fatalf("get = %+v, want Ok(1)", res)
	}
}

// TestUpdateOverwritesValue covers scenario S2.
func TestUpdateOverwritesValue(t *testing.T) {
	a, _ := newTestMaster(t, time.Hour)

	doSync(t, a, Request{Op: OpPut, Key: data.String("a"), Value: data.Int(1)})
	doSync(t, a, Request{Op: OpPut, Key: data.String("a"), Value: data.Int(2)})

	res := doSync(t, a, Request{Op: OpGet, Key: data.String("a")})
	if !res.Value.Equal(data.Int(2)) {
		t.Fatalf("get = %+v, want Ok(2)", res)
	}
}

func TestGetMissingKeyFails(t *testing.T) {
	a, _ := newTestMaster(t, time.Hour)
	res := doSync(t, a, Request{Op: OpGet, Key: data.String("missing")})
	if res.IsOk() || res.Err.Kind != brokererr.KindNoSuchKey {
		t.Fatalf("expected no_such_key, got %+v", res)
	}
}

// TestPutUniqueRace covers invariant 6 / scenario S3: concurrent
// put_unique calls for the same key resolve to exactly one winner.
func TestPutUniqueRace(t *testing.T) {
	a, _ := newTestMaster(t, time.Hour)

	results := make([]bool, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res := doSync(t, a, Request{Op: OpPutUnique, Key: data.String("k"), Value: data.String("A")})
		results[0] = res.IsOk() && res.Value.Bool()
	}()
	go func() {
		defer wg.Done()
		res := doSync(t, a, Request{Op: OpPutUnique, Key: data.String("k"), Value: data.String("B")})
		results[1] = res.IsOk() && res.Value.Bool()
	}()
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("expected exactly one winner, got %v", results)
	}

	res := doSync(t, a, Request{Op: OpGet, Key: data.String("k")})
	if !res.IsOk() {
		t.Fatalf("expected key to exist after race, got %+v", res)
	}
}

// TestExpiryTickErasesAndEmits covers invariant 3 / scenario S4.
func TestExpiryTickErasesAndEmits(t *testing.T) {
	b := bus.New(32)
	a := NewMaster("S", memory.New(), b, ids.EntityID{Object: "master-1"}, 20*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	events := b.Subscribe(ctx, a.EventTopic())
	a.Start(ctx)
	defer func() { cancel(); a.Stop(); b.Close() }()

	exp := time.Now().Add(30 * time.Millisecond)
	doSync(t, a, Request{Op: OpPut, Key: data.String("t"), Value: data.String("x"), Expiry: &exp})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Vector()[0].Str() == "expire" {
				goto expired
			}
		case <-deadline:
			t.Fatal("timed out waiting for expire event")
		}
	}
expired:
	res := doSync(t, a, Request{Op: OpGet, Key: data.String("t")})
	if res.IsOk() {
		t.Fatal("expected key to be gone after expiry")
	}
}
