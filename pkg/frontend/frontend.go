// Package frontend implements the frontend/proxy component (C6): the
// synchronous and fire-and-forget entry points a requester uses to
// drive a store actor, plus the async mailbox (Proxy) for callers that
// want request ids and a readiness signal instead of blocking calls.
//
// Grounded on pkg/rpc.HTTPStore and pkg/cluster.RemoteClient
// (request-shaped methods wrapping a client call), generalized from an
// HTTP round trip to an in-process submission against a
// storeactor.Actor's request channel.
package frontend

import (
	"context"
	"time"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
	"github.com/nimbuskv/broker/pkg/storeactor"
)

// DefaultRequestTimeout matches spec §4.4's example default for
// broker.store.request-timeout.
const DefaultRequestTimeout = 10 * time.Second

// Frontend is the synchronous/fire-and-forget handle from spec §4.4.
type Frontend struct {
	actor          *storeactor.Actor
	requester      ids.EntityID
	requestTimeout time.Duration
}

// New builds a Frontend stamping requester on every request it issues
// against actor. A zero requestTimeout uses DefaultRequestTimeout.
func New(actor *storeactor.Actor, requester ids.EntityID, requestTimeout time.Duration) *Frontend {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Frontend{actor: actor, requester: requester, requestTimeout: requestTimeout}
}

// call issues a synchronous request and blocks up to f.requestTimeout
// for its reply, per spec §4.4 "Synchronous methods".
func (f *Frontend) call(ctx context.Context, req storeactor.Request) brokererr.Expected[data.Value] {
	req.Requester = f.requester
	req.ReplyTo = make(chan brokererr.Expected[data.Value], 1)

	callCtx, cancel := context.WithTimeout(ctx, f.requestTimeout)
	defer cancel()

	f.actor.Submit(callCtx, req)
	select {
	case res := <-req.ReplyTo:
		return res
	case <-callCtx.Done():
		return brokererr.Fail[data.Value](brokererr.New(brokererr.KindRequestTimeout))
	}
}

// fireAndForget issues a write without waiting for its reply, per spec
// §4.4 "Fire-and-forget modifiers".
func (f *Frontend) fireAndForget(ctx context.Context, req storeactor.Request) {
	req.Requester = f.requester
	f.actor.Submit(ctx, req)
}

// Exists reports whether key is present.
func (f *Frontend) Exists(ctx context.Context, key data.Value) brokererr.Expected[data.Value] {
	return f.call(ctx, storeactor.Request{Op: storeactor.OpExists, Key: key})
}

// Get returns the value stored at key.
func (f *Frontend) Get(ctx context.Context, key data.Value) brokererr.Expected[data.Value] {
	return f.call(ctx, storeactor.Request{Op: storeactor.OpGet, Key: key})
}

// GetIndexFromValue indexes into the value stored at key.
func (f *Frontend) GetIndexFromValue(ctx context.Context, key, index data.Value) brokererr.Expected[data.Value] {
	return f.call(ctx, storeactor.Request{Op: storeactor.OpGetIndexFromValue, Key: key, Index: index})
}

// Keys returns the set of all keys in the store.
func (f *Frontend) Keys(ctx context.Context) brokererr.Expected[data.Value] {
	return f.call(ctx, storeactor.Request{Op: storeactor.OpKeys})
}

// PutUnique atomically inserts (key, value) iff key is absent,
// returning a boolean data value: true if inserted, false if the key
// already existed (spec §4.3 invariant 6).
func (f *Frontend) PutUnique(ctx context.Context, key, value data.Value, expiry *time.Time) brokererr.Expected[data.Value] {
	return f.call(ctx, storeactor.Request{Op: storeactor.OpPutUnique, Key: key, Value: value, Expiry: expiry})
}

// Put unconditionally stores value at key.
func (f *Frontend) Put(ctx context.Context, key, value data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpPut, Key: key, Value: value, Expiry: expiry})
}

// Erase removes key if present.
func (f *Frontend) Erase(ctx context.Context, key data.Value) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpErase, Key: key})
}

// Clear removes every key in the store.
func (f *Frontend) Clear(ctx context.Context) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpClear})
}

// Increment applies add(key, delta, initType) (spec §4.1 add, numeric
// and temporal cases).
func (f *Frontend) Increment(ctx context.Context, key, delta data.Value, initType data.Kind, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpAdd, Key: key, Value: delta, InitType: initType, Expiry: expiry})
}

// Decrement applies subtract(key, delta) for the numeric/temporal cases.
func (f *Frontend) Decrement(ctx context.Context, key, delta data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpSubtract, Key: key, Value: delta, Expiry: expiry})
}

// Append concatenates suffix onto the string stored at key via add's
// string case.
func (f *Frontend) Append(ctx context.Context, key data.Value, suffix string, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{
		Op: storeactor.OpAdd, Key: key, Value: data.String(suffix), InitType: data.KindString, Expiry: expiry,
	})
}

// InsertInto binds index to value inside the table stored at key via
// add's table case (delta is the 2-element [index, value] vector).
func (f *Frontend) InsertInto(ctx context.Context, key, index, value data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{
		Op: storeactor.OpAdd, Key: key, Value: data.NewVector(index, value), InitType: data.KindTable, Expiry: expiry,
	})
}

// Push appends value onto the vector stored at key via add's vector
// case.
func (f *Frontend) Push(ctx context.Context, key, value data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{
		Op: storeactor.OpAdd, Key: key, Value: value, InitType: data.KindVector, Expiry: expiry,
	})
}

// Pop removes the last element of the vector stored at key. No delta
// value is sent: subtract's vector case always removes the last
// element and ignores delta.
func (f *Frontend) Pop(ctx context.Context, key data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpSubtract, Key: key, Expiry: expiry})
}

// RemoveFrom removes member from the set or table stored at key via
// subtract's set/table case.
func (f *Frontend) RemoveFrom(ctx context.Context, key, member data.Value, expiry *time.Time) {
	f.fireAndForget(ctx, storeactor.Request{Op: storeactor.OpSubtract, Key: key, Value: member, Expiry: expiry})
}
