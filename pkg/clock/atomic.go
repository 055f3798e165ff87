// Package clock provides a lock-free monotonic counter. command.Sequencer
// wraps it to mint the seq numbers a master tags every broadcast
// command with.
package clock

import "sync/atomic"

// AtomicClock is an atomic (fetch-and-add) uint64 counter safe for
// concurrent Next calls from multiple request-handling goroutines.
type AtomicClock struct {
	atomic.Uint64
}

func NewAtomic(init uint64) *AtomicClock {
	var ac AtomicClock
	ac.Set(init)
	return &ac
}

func (ac *AtomicClock) Val() uint64 {
	return ac.Load()
}

func (ac *AtomicClock) Next() uint64 {
	return ac.Add(1)
}

func (ac *AtomicClock) Set(t uint64) {
	ac.Store(t)
}
