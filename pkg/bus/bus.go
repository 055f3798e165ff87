// Package bus provides the in-process topic fan-out used to deliver
// store change events (spec §4.5) to subscribers. Grounded on
// other_examples/rzabhd80-broker__broker.go's Publish/Subscribe
// interface shape, narrowed from that repo's persisted/replayable
// message log to a plain fan-out suited to ephemeral change events —
// this subsystem owns no durable event log, only live delivery.
package bus

import (
	"context"
	"sync"

	"github.com/nimbuskv/broker/pkg/data"
)

// TopicSeparator joins a store name to its well-known event topic
// (spec §4.5), e.g. "store_events/inventory".
const TopicSeparator = "/"

// Bus is the publish/subscribe fabric a store actor uses to announce
// mutations. Subscribe returns a channel that is closed when ctx is
// cancelled or Unsubscribe-equivalent cleanup runs; Publish never
// blocks on a slow subscriber past the bus's internal buffering.
type Bus interface {
	Publish(ctx context.Context, topic string, event data.Value)
	Subscribe(ctx context.Context, topic string) <-chan data.Value
	Close()
}

// subscriber is one live Subscribe call's delivery channel.
type subscriber struct {
	ch   chan data.Value
	done <-chan struct{}
}

// InProcess is the default Bus: topic-keyed fan-out across goroutine
// subscribers, all living in the same process as the store actor that
// publishes to it (spec §1: cross-endpoint delivery is out of scope).
type InProcess struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber
	bufferSize  int
	closed      bool
}

// New constructs an InProcess bus. bufferSize bounds how many
// undelivered events queue per subscriber before Publish drops the
// oldest rather than blocking the publishing store actor.
func New(bufferSize int) *InProcess {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &InProcess{
		subscribers: make(map[string][]*subscriber),
		bufferSize:  bufferSize,
	}
}

func (b *InProcess) Subscribe(ctx context.Context, topic string) <-chan data.Value {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan data.Value, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	sub := &subscriber{ch: ch, done: ctx.Done()}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go func() {
		<-ctx.Done()
		b.remove(topic, sub)
	}()

	return ch
}

func (b *InProcess) remove(topic string, target *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == target {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Publish delivers event to every live subscriber of topic. A
// subscriber whose buffer is full has its oldest queued event dropped
// to make room — a slow subscriber never stalls the store actor's
// message loop.
func (b *InProcess) Publish(ctx context.Context, topic string, event data.Value) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- event:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- event:
			default:
			}
		}
	}
}

// Close shuts down the bus, closing every subscriber channel. Further
// Subscribe calls return an already-closed channel.
func (b *InProcess) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, s := range subs {
			close(s.ch)
		}
	}
	b.subscribers = nil
}
