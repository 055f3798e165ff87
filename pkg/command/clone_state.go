package command

// maxGapBuffer bounds how many out-of-order commands a clone will hold
// while waiting for a resync; overflow forces a resync rather than
// growing unboundedly (spec §4.3 "capped at a bounded window; overflow
// drops the oldest and forces a resync").
const maxGapBuffer = 1024

// Outcome tells the store actor what to do with an inbound command
// after the clone-side state machine (spec §4.3 "Command application")
// has classified it.
type Outcome int

const (
	// OutcomeApply means apply cmd to the backend now and advance
	// expected_seq; the buffer may also have follow-on commands ready
	// to apply immediately after.
	OutcomeApply Outcome = iota
	// OutcomeDuplicate means seq < expected_seq; ignore silently.
	OutcomeDuplicate
	// OutcomeBuffered means seq > expected_seq; cmd was buffered and a
	// resync should be requested (ResyncNeeded reports this).
	OutcomeBuffered
	// OutcomeDroppedForResync means the gap buffer overflowed; its
	// oldest buffered command was dropped and a forced resync is required.
	OutcomeDroppedForResync
)

// CloneState tracks a clone's application cursor and out-of-order
// buffer for one store. It is owned exclusively by the store actor
// goroutine for that store (spec §5: "Backends are accessed only by
// their owning store actor" — the same single-ownership discipline
// applies to this replication cursor).
type CloneState struct {
	expectedSeq uint64
	buffer      map[uint64]Command
	resyncing   bool
}

// NewCloneState starts a clone expecting the given initial seq (1 for
// a brand-new clone with no history, or snapshotSeq+1 after a resync).
func NewCloneState(expectedSeq uint64) *CloneState {
	return &CloneState{
		expectedSeq: expectedSeq,
		buffer:      make(map[uint64]Command),
	}
}

// ExpectedSeq returns the next seq this clone is waiting to apply.
func (c *CloneState) ExpectedSeq() uint64 { return c.expectedSeq }

// Resyncing reports whether a resync is outstanding.
func (c *CloneState) Resyncing() bool { return c.resyncing }

// Observe classifies an inbound command per spec §4.3 steps 2-4 and
// updates internal state accordingly. Ready returns the commands (in
// seq order, possibly including cmd itself) now eligible for
// immediate application as a consequence of this observation.
func (c *CloneState) Observe(cmd Command) (outcome Outcome, ready []Command) {
	switch {
	case cmd.Seq < c.expectedSeq:
		return OutcomeDuplicate, nil

	case cmd.Seq == c.expectedSeq:
		ready = append(ready, cmd)
		c.expectedSeq++
		for {
			next, ok := c.buffer[c.expectedSeq]
			if !ok {
				break
			}
			delete(c.buffer, c.expectedSeq)
			ready = append(ready, next)
			c.expectedSeq++
		}
		return OutcomeApply, ready

	default: // cmd.Seq > c.expectedSeq: gap
		if len(c.buffer) >= maxGapBuffer {
			c.buffer[cmd.Seq] = cmd
			oldest := cmd.Seq
			for bufSeq := range c.buffer {
				if bufSeq < oldest {
					oldest = bufSeq
				}
			}
			delete(c.buffer, oldest)
			c.resyncing = true
			return OutcomeDroppedForResync, nil
		}
		c.buffer[cmd.Seq] = cmd
		c.resyncing = true
		return OutcomeBuffered, nil
	}
}

// BeginResync marks a resync as outstanding (called when the actor
// sends a snapshot_request even before any gap is observed, e.g. on
// initial attach).
func (c *CloneState) BeginResync() {
	c.resyncing = true
}

// ApplySnapshot resets the cursor after a snapshot_reply(seq, ...):
// expected_seq becomes seq+1 and any buffered commands at or below seq
// are discarded as already covered by the snapshot (spec §4.3
// "Snapshot protocol" + scenario S6 "no command between 10 and k is
// applied twice").
func (c *CloneState) ApplySnapshot(seq uint64) {
	c.expectedSeq = seq + 1
	for bufSeq := range c.buffer {
		if bufSeq <= seq {
			delete(c.buffer, bufSeq)
		}
	}
	c.resyncing = false

	// Buffered commands above seq stay in the buffer; the caller flushes
	// the ones now contiguous with expected_seq via DrainReady.
}

// DrainReady returns (and removes) any buffered commands that are now
// immediately applicable given the current expected_seq, advancing the
// cursor as it goes. Call after ApplySnapshot to flush commands that
// arrived during the resync window.
func (c *CloneState) DrainReady() []Command {
	var ready []Command
	for {
		next, ok := c.buffer[c.expectedSeq]
		if !ok {
			break
		}
		delete(c.buffer, c.expectedSeq)
		ready = append(ready, next)
		c.expectedSeq++
	}
	return ready
}
