package frontend

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
	"github.com/nimbuskv/broker/pkg/storeactor"
	"github.com/zhangyunhao116/skipset"
)

// Response pairs a completed request's id with its result, per spec
// §4.4's async request/response interface against a store actor.
type Response struct {
	RequestID uint64
	Result    brokererr.Expected[data.Value]
}

// Proxy is the asynchronous mailbox half of C6: Send enqueues a
// request against a store actor and returns immediately with a request
// id; Receive/ReceiveN drain completed responses, blocking on the
// flare the way an external event loop would block on its FD.
//
// inFlight is a skipset.Uint64Set of request ids awaiting reply, so a
// reply that arrives after Cancel has already been called is recognized
// and discarded rather than queued (spec §5 "Cancellation and
// timeouts").
type Proxy struct {
	actor     *storeactor.Actor
	requester ids.EntityID

	flare    *flare
	inFlight *skipset.Uint64Set

	mu    sync.Mutex
	queue []Response

	nextID atomic.Uint64
}

// NewProxy builds a Proxy whose requests are stamped with requester and
// submitted to actor.
func NewProxy(actor *storeactor.Actor, requester ids.EntityID) (*Proxy, error) {
	fl, err := newFlare()
	if err != nil {
		return nil, err
	}
	return &Proxy{
		actor:     actor,
		requester: requester,
		flare:     fl,
		inFlight:  skipset.NewUint64(),
	}, nil
}

// FD exposes the underlying flare's file descriptor for external
// select/epoll-based event loops.
func (p *Proxy) FD() int {
	return p.flare.FD()
}

// Send submits req to the bound actor and returns a request id; the
// eventual reply is delivered via Receive/ReceiveN rather than blocking
// the caller.
func (p *Proxy) Send(ctx context.Context, req storeactor.Request) uint64 {
	id := p.nextID.Add(1)
	req.RequestID = id
	req.Requester = p.requester
	req.ReplyTo = make(chan brokererr.Expected[data.Value], 1)

	p.inFlight.Add(id)
	p.actor.Submit(ctx, req)
	go p.await(id, req.ReplyTo)
	return id
}

func (p *Proxy) await(id uint64, replyTo chan brokererr.Expected[data.Value]) {
	res := <-replyTo
	if !p.inFlight.Contains(id) {
		return // cancelled: discard the late reply
	}
	p.inFlight.Remove(id)
	p.mu.Lock()
	p.queue = append(p.queue, Response{RequestID: id, Result: res})
	p.mu.Unlock()
	p.flare.Arm()
}

// Cancel removes id from the in-flight set. A reply that arrives after
// Cancel is discarded instead of queued.
func (p *Proxy) Cancel(id uint64) {
	p.inFlight.Remove(id)
}

// Receive blocks until a response is queued or ctx is done.
func (p *Proxy) Receive(ctx context.Context) (Response, bool) {
	for {
		if resp, ok := p.pop(); ok {
			return resp, true
		}
		select {
		case <-ctx.Done():
			return Response{}, false
		case <-p.flare.wake():
		}
	}
}

// ReceiveN blocks until n responses have arrived or ctx is done,
// per spec §4.4's "collects up to n responses, blocking until n
// arrive".
func (p *Proxy) ReceiveN(ctx context.Context, n int) []Response {
	out := make([]Response, 0, n)
	for len(out) < n {
		resp, ok := p.Receive(ctx)
		if !ok {
			break
		}
		out = append(out, resp)
	}
	return out
}

func (p *Proxy) pop() (Response, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return Response{}, false
	}
	resp := p.queue[0]
	p.queue = p.queue[1:]
	if len(p.queue) == 0 {
		p.flare.Drain()
	}
	return resp, true
}

func (p *Proxy) Close() error {
	return p.flare.Close()
}
