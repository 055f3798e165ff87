package storeactor

import (
	"context"
	"testing"
	"time"

	"github.com/nimbuskv/broker/pkg/backend/memory"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/command"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

func attachClone(t *testing.T, master *Actor, b *bus.InProcess) (*Actor, context.CancelFunc) {
	t.Helper()
	cloneSelf := ids.EntityID{Object: ids.NewActorID()}
	clone := NewClone("S", memory.New(), b, cloneSelf, ids.EntityID{Object: "master-1"}, master.MasterInbound(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	master.RegisterClone(string(cloneSelf.Object), clone.DirectInbound())
	clone.Start(ctx)
	t.Cleanup(func() { cancel(); clone.Stop() })
	return clone, cancel
}

// TestCloneResyncOnAttach covers scenario S5: master has commands
// 1..N applied; a fresh clone attaches, receives a snapshot_reply, and
// subsequent commands apply without a gap.
func TestCloneResyncOnAttach(t *testing.T) {
	b := bus.New(32)
	master := NewMaster("S", memory.New(), b, ids.EntityID{Object: "master-1"}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	master.Start(ctx)
	t.Cleanup(func() { cancel(); master.Stop(); b.Close() })

	for i := 0; i < 5; i++ {
		res := doSync(t, master, Request{Op: OpPut, Key: data.Int(int64(i)), Value: data.Int(int64(i * 10))})
		if !res.IsOk() {
			t.Fatalf("seed put %d failed: %v", i, res.Err)
		}
	}

	clone, _ := attachClone(t, master, b)

	// the clone's snapshot should eventually reflect all 5 seeded keys
	deadline := time.After(2 * time.Second)
	for {
		res := doSync(t, clone, Request{Op: OpGet, Key: data.Int(4)})
		if res.IsOk() && res.Value.Equal(data.Int(40)) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("clone never caught up via snapshot: %+v", res)
		case <-time.After(10 * time.Millisecond):
		}
	}

	res := doSync(t, master, Request{Op: OpPut, Key: data.Int(100), Value: data.String("fresh")})
	if !res.IsOk() {
		t.Fatalf("post-attach put failed: %v", res.Err)
	}

	deadline = time.After(2 * time.Second)
	for {
		res := doSync(t, clone, Request{Op: OpGet, Key: data.Int(100)})
		if res.IsOk() && res.Value.Equal(data.String("fresh")) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("clone never applied post-attach command: %+v", res)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestCloneGapTriggersResync covers scenario S6 at the CloneState
// level: a clone expecting seq 10 that sees seq 13 buffers and, upon a
// snapshot_reply covering up through 12, applies 13 exactly once.
func TestCloneGapTriggersResync(t *testing.T) {
	cs := command.NewCloneState(10)
	outcome, ready := cs.Observe(command.Command{Seq: 13, Type: command.TypePut})
	if outcome != command.OutcomeBuffered || ready != nil {
		t.Fatalf("expected buffered, got %v", outcome)
	}

	cs.ApplySnapshot(12)
	drained := cs.DrainReady()
	if len(drained) != 1 || drained[0].Seq != 13 {
		t.Fatalf("expected seq 13 to drain exactly once, got %+v", drained)
	}

	// a duplicate arriving after the snapshot must be ignored, not
	// reapplied.
	outcome, _ = cs.Observe(command.Command{Seq: 11, Type: command.TypePut})
	if outcome != command.OutcomeDuplicate {
		t.Fatalf("expected duplicate for seq below expected, got %v", outcome)
	}
}

func TestCloneForwardsWritesToMaster(t *testing.T) {
	b := bus.New(32)
	master := NewMaster("S", memory.New(), b, ids.EntityID{Object: "master-1"}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	master.Start(ctx)
	t.Cleanup(func() { cancel(); master.Stop(); b.Close() })

	clone, _ := attachClone(t, master, b)

	res := doSync(t, clone, Request{Op: OpPutUnique, Key: data.String("race"), Value: data.String("v")})
	if !res.IsOk() || !res.Value.Bool() {
		t.Fatalf("expected put_unique via clone to succeed, got %+v", res)
	}

	masterRes := doSync(t, master, Request{Op: OpGet, Key: data.String("race")})
	if !masterRes.IsOk() || !masterRes.Value.Equal(data.String("v")) {
		t.Fatalf("master should have authoritative value after clone-forwarded put_unique: %+v", masterRes)
	}
}
