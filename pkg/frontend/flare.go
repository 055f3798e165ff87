package frontend

import (
	"os"
	"sync"
)

// flare is the level-triggered readiness primitive of spec §5's Design
// Note "Flare primitive": backed by os.Pipe, the portable stdlib
// stand-in for an eventfd (Linux's eventfd(2) has no Go stdlib
// exposure, so a self-pipe is the idiomatic portable choice, as used
// for wakeups elsewhere in Go network code). Exactly one byte is ever
// in flight: Arm is idempotent while armed, Drain clears the level.
type flare struct {
	mu     sync.Mutex
	armed  bool
	r, w   *os.File
	notify chan struct{}
}

func newFlare() (*flare, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &flare{r: r, w: w, notify: make(chan struct{}, 1)}, nil
}

// Arm marks the flare readable, writing a single byte if it is not
// already armed.
func (f *flare) Arm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.armed {
		return
	}
	f.armed = true
	f.w.Write([]byte{1})
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// FD exposes the read end's file descriptor for select/epoll-based
// external loops.
func (f *flare) FD() int {
	return int(f.r.Fd())
}

// Drain reads and discards the pending byte, clearing the level.
func (f *flare) Drain() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.armed {
		return
	}
	buf := make([]byte, 1)
	f.r.Read(buf)
	f.armed = false
}

// wake is the in-process readiness signal Proxy.Receive blocks on; it
// fires alongside every Arm so an in-process caller need not poll FD
// via an external epoll loop.
func (f *flare) wake() <-chan struct{} {
	return f.notify
}

func (f *flare) Close() error {
	f.r.Close()
	return f.w.Close()
}
