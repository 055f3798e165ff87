package command

import "testing"

func TestObserveInOrderApplies(t *testing.T) {
	cs := NewCloneState(1)
	outcome, ready := cs.Observe(Command{Seq: 1, Type: TypePut})
	if outcome != OutcomeApply || len(ready) != 1 {
		t.Fatalf("expected immediate apply, got outcome=%v ready=%v", outcome, ready)
	}
	if cs.ExpectedSeq() != 2 {
		t.Fatalf("expected_seq = %d, want 2", cs.ExpectedSeq())
	}
}

func TestObserveDuplicateIgnored(t *testing.T) {
	cs := NewCloneState(5)
	outcome, ready := cs.Observe(Command{Seq: 3, Type: TypePut})
	if outcome != OutcomeDuplicate || ready != nil {
		t.Fatalf("expected duplicate, got outcome=%v ready=%v", outcome, ready)
	}
	if cs.ExpectedSeq() != 5 {
		t.Fatalf("expected_seq should not move on duplicate, got %d", cs.ExpectedSeq())
	}
}

// TestObserveGapBuffersAndDrainsOnSnapshot covers scenario S6: clone
// expects 10, sees 13, buffers; after snapshot_reply(12, ...) expected
// becomes 13 and 13 applies immediately without re-applying 10-12.
func TestObserveGapBuffersAndDrainsOnSnapshot(t *testing.T) {
	cs := NewCloneState(10)

	outcome, ready := cs.Observe(Command{Seq: 13, Type: TypePut})
	if outcome != OutcomeBuffered || ready != nil {
		t.Fatalf("expected buffered, got outcome=%v ready=%v", outcome, ready)
	}
	if !cs.Resyncing() {
		t.Fatal("expected resyncing=true after a gap")
	}

	cs.ApplySnapshot(12)
	if cs.ExpectedSeq() != 13 {
		t.Fatalf("expected_seq = %d, want 13", cs.ExpectedSeq())
	}
	if cs.Resyncing() {
		t.Fatal("expected resyncing=false after snapshot applied")
	}

	drained := cs.DrainReady()
	if len(drained) != 1 || drained[0].Seq != 13 {
		t.Fatalf("expected buffered seq 13 to drain, got %+v", drained)
	}
	if cs.ExpectedSeq() != 14 {
		t.Fatalf("expected_seq after drain = %d, want 14", cs.ExpectedSeq())
	}
}

func TestObserveContiguousBufferDrainsTogether(t *testing.T) {
	cs := NewCloneState(1)
	cs.Observe(Command{Seq: 3, Type: TypePut})
	cs.Observe(Command{Seq: 2, Type: TypePut})

	outcome, ready := cs.Observe(Command{Seq: 1, Type: TypePut})
	if outcome != OutcomeApply {
		t.Fatalf("expected apply, got %v", outcome)
	}
	if len(ready) != 3 {
		t.Fatalf("expected 3 commands ready (1,2,3), got %d", len(ready))
	}
	for i, cmd := range ready {
		if cmd.Seq != uint64(i+1) {
			t.Fatalf("ready[%d].Seq = %d, want %d", i, cmd.Seq, i+1)
		}
	}
	if cs.ExpectedSeq() != 4 {
		t.Fatalf("expected_seq = %d, want 4", cs.ExpectedSeq())
	}
}

func TestGapBufferOverflowForcesResync(t *testing.T) {
	cs := NewCloneState(1)
	for i := uint64(0); i < maxGapBuffer; i++ {
		seq := uint64(2) + i // never equal to expectedSeq, always a gap
		cs.Observe(Command{Seq: seq, Type: TypePut})
	}

	outcome, ready := cs.Observe(Command{Seq: maxGapBuffer + 100, Type: TypePut})
	if outcome != OutcomeDroppedForResync || ready != nil {
		t.Fatalf("expected forced resync on overflow, got outcome=%v", outcome)
	}
}

func TestSequencerMonotonic(t *testing.T) {
	seq := NewSequencer(0)
	if seq.Next() != 1 || seq.Next() != 2 || seq.Next() != 3 {
		t.Fatal("sequencer did not issue 1,2,3")
	}
	if seq.Current() != 3 {
		t.Fatalf("Current() = %d, want 3", seq.Current())
	}
}
