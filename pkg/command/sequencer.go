package command

import "github.com/nimbuskv/broker/pkg/clock"

// Sequencer issues the monotonically increasing seq numbers a master
// tags every broadcast command with (spec invariant 2). Adapted from
// pkg/clock.AtomicClock, which already provides the atomic
// increment-and-fetch this needs; we just give it a domain-specific
// name at the call site.
type Sequencer struct {
	clock *clock.AtomicClock
}

// NewSequencer starts a sequencer at the given initial value (0 for a
// fresh master, or a snapshot's seq for one recovering state).
func NewSequencer(initial uint64) *Sequencer {
	return &Sequencer{clock: clock.NewAtomic(initial)}
}

// Next returns the next seq to tag a broadcast command with.
func (s *Sequencer) Next() uint64 {
	return s.clock.Next()
}

// Current returns the last seq issued (0 if none yet).
func (s *Sequencer) Current() uint64 {
	return s.clock.Val()
}
