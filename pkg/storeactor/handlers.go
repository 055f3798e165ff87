package storeactor

import (
	"context"
	"time"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/command"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/events"
	"github.com/nimbuskv/broker/pkg/ids"
)

// handle is the Listener[actorMsg] callback: the single entry point
// through which this actor processes exactly one message at a time
// (spec §5 "Scheduling model").
func (a *Actor) handle(msg actorMsg) error {
	ctx := context.Background()
	switch msg.kind {
	case msgRequest:
		a.handleRequest(ctx, *msg.request)
	case msgForwardedWrite:
		a.handleForwardedWrite(ctx, *msg.command)
	case msgAppliedCommand:
		a.handleAppliedCommand(ctx, *msg.command)
	case msgDirect:
		a.handleDirect(ctx, *msg.command)
	case msgTick:
		a.handleTick(ctx)
	}
	return nil
}

func failFromErr(err error) brokererr.Expected[data.Value] {
	if berr, ok := err.(*brokererr.Error); ok {
		return brokererr.Fail[data.Value](berr)
	}
	return brokererr.Fail[data.Value](brokererr.Newf(brokererr.KindBackendFailure, "%v", err))
}

func expiryNano(expiry *time.Time) *int64 {
	if expiry == nil {
		return nil
	}
	n := expiry.UnixNano()
	return &n
}

func nanoToTime(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := time.Unix(0, *n).UTC()
	return &t
}

// handleRequest dispatches one frontend request. Reads are served
// locally regardless of role; writes are applied-and-broadcast on a
// master or forwarded pre-commit to the master on a clone (spec §4.3
// "Request operations").
func (a *Actor) handleRequest(ctx context.Context, req Request) {
	if req.Op.isRead() {
		req.reply(a.serveRead(ctx, req))
		return
	}

	if a.role == RoleMaster {
		if req.Op == OpPutUnique {
			inserted := a.masterApplyPutUnique(ctx, req.Key, req.Value, req.Expiry, req.Requester)
			req.reply(brokererr.Ok[data.Value](data.Bool(inserted)))
			return
		}
		result := a.masterApplyWrite(ctx, req.Op, req.Key, req.Value, req.InitType, req.Expiry, req.Requester)
		req.reply(result)
		return
	}

	// Clone: forward as a pre-commit command to the master instead of
	// applying locally (spec §4.3: "the clone does NOT apply locally
	// until it receives the replay").
	a.forwardWrite(ctx, req)
}

func (a *Actor) serveRead(ctx context.Context, req Request) brokererr.Expected[data.Value] {
	switch req.Op {
	case OpExists:
		ok, err := a.be.Exists(ctx, req.Key)
		if err != nil {
			return failFromErr(err)
		}
		return brokererr.Ok[data.Value](data.Bool(ok))
	case OpGet:
		v, err := a.be.Get(ctx, req.Key)
		if err != nil {
			return failFromErr(err)
		}
		return brokererr.Ok[data.Value](v)
	case OpGetIndexFromValue:
		container, err := a.be.Get(ctx, req.Key)
		if err != nil {
			return failFromErr(err)
		}
		v, ierr := data.IndexInto(container, req.Index)
		if ierr != nil {
			return brokererr.Fail[data.Value](brokererr.New(brokererr.KindNoSuchKey))
		}
		return brokererr.Ok[data.Value](v)
	case OpKeys:
		v, err := a.be.Keys(ctx)
		if err != nil {
			return failFromErr(err)
		}
		return brokererr.Ok[data.Value](v)
	default:
		return brokererr.Fail[data.Value](brokererr.New(brokererr.KindUnspecified))
	}
}

// masterApplyWrite applies a non-put_unique write directly to the
// backend, then emits the matching event and broadcasts the
// replication command (spec §4.3 "Command emission"). Used both for
// locally-originated master requests and for writes forwarded by a
// clone — the two paths converge here because the effect is identical.
func (a *Actor) masterApplyWrite(ctx context.Context, op OpType, key, value data.Value, initType data.Kind, expiry *time.Time, publisher ids.EntityID) brokererr.Expected[data.Value] {
	switch op {
	case OpPut:
		existed, _ := a.be.Exists(ctx, key)
		var oldVal data.Value
		if existed {
			oldVal, _ = a.be.Get(ctx, key)
		}
		if err := a.be.Put(ctx, key, value, expiry); err != nil {
			return failFromErr(err)
		}
		ev := events.MutationFor(existed, a.storeName, key, oldVal, value, expiry, publisher)
		a.publishEventAndCommand(ctx, ev, command.TypePut, command.Payload{Key: key, Value: value, Expiry: expiryNano(expiry), Publisher: publisher})
		return brokererr.Ok[data.Value](value)

	case OpErase:
		existed, _ := a.be.Exists(ctx, key)
		if err := a.be.Erase(ctx, key); err != nil {
			return failFromErr(err)
		}
		if existed {
			ev := events.Erase(a.storeName, key, publisher)
			a.publishEventAndCommand(ctx, ev, command.TypeErase, command.Payload{Key: key, Publisher: publisher})
		}
		return brokererr.Ok[data.Value](data.None())

	case OpClear:
		if err := a.be.Clear(ctx); err != nil {
			return failFromErr(err)
		}
		a.publishCommand(ctx, command.TypeClear, command.Payload{Publisher: publisher})
		return brokererr.Ok[data.Value](data.None())

	case OpAdd:
		existed, _ := a.be.Exists(ctx, key)
		var oldVal data.Value
		if existed {
			oldVal, _ = a.be.Get(ctx, key)
		}
		newVal, err := a.be.Add(ctx, key, value, initType, expiry)
		if err != nil {
			return failFromErr(err)
		}
		ev := events.MutationFor(existed, a.storeName, key, oldVal, newVal, expiry, publisher)
		a.publishEventAndCommand(ctx, ev, command.TypeAdd, command.Payload{Key: key, Value: value, InitType: initType, Expiry: expiryNano(expiry), Publisher: publisher})
		return brokererr.Ok[data.Value](newVal)

	case OpSubtract:
		oldVal, err := a.be.Get(ctx, key)
		if err != nil {
			return failFromErr(err)
		}
		newVal, err := a.be.Subtract(ctx, key, value, expiry)
		if err != nil {
			return failFromErr(err)
		}
		ev := events.Update(a.storeName, key, oldVal, newVal, expiry, publisher)
		a.publishEventAndCommand(ctx, ev, command.TypeSubtract, command.Payload{Key: key, Value: value, Expiry: expiryNano(expiry), Publisher: publisher})
		return brokererr.Ok[data.Value](newVal)

	default:
		return brokererr.Fail[data.Value](brokererr.New(brokererr.KindUnspecified))
	}
}

// masterApplyPutUnique implements spec §4.3 put_unique: atomic
// check-then-insert. Because a store actor processes one message at a
// time, this check-then-insert is already serialized against every
// other request on this store without extra locking (spec invariant 5,
// invariant 6 / scenario S3).
func (a *Actor) masterApplyPutUnique(ctx context.Context, key, value data.Value, expiry *time.Time, publisher ids.EntityID) bool {
	existed, err := a.be.Exists(ctx, key)
	if err != nil || existed {
		return false
	}
	if err := a.be.Put(ctx, key, value, expiry); err != nil {
		a.log.Error("put_unique backend failure", "store", a.storeName, "error", err)
		return false
	}
	ev := events.Insert(a.storeName, key, value, expiry, publisher)
	a.publishEventAndCommand(ctx, ev, command.TypePut, command.Payload{Key: key, Value: value, Expiry: expiryNano(expiry), Publisher: publisher})
	return true
}

func (a *Actor) publishEventAndCommand(ctx context.Context, eventVec data.Value, cmdType command.Type, payload command.Payload) {
	a.bus.Publish(ctx, a.EventTopic(), eventVec)
	a.publishCommand(ctx, cmdType, payload)
}

func (a *Actor) publishCommand(ctx context.Context, cmdType command.Type, payload command.Payload) {
	seq := a.seq.Next()
	cmd := command.Command{Sender: a.self, Seq: seq, Type: cmdType, Payload: payload}
	a.bus.Publish(ctx, a.CommandTopic(), command.Encode(cmd))
}

// forwardWrite converts a clone-local write request into a pre-commit
// command sent to the bound master (spec §4.3, §6 command table
// "frontend→master"). put_unique additionally registers a local
// waiter so the eventual put_unique_result can be routed back to req.
func (a *Actor) forwardWrite(ctx context.Context, req Request) {
	a.putUniqueMu.Lock()
	a.nextForwardID++
	forwardID := a.nextForwardID
	a.putUniqueMu.Unlock()

	cmdType := opToCommandType(req.Op)
	payload := command.Payload{
		Key:       req.Key,
		Value:     req.Value,
		InitType:  req.InitType,
		Expiry:    expiryNano(req.Expiry),
		Publisher: req.Requester,
		CloneID:   string(a.self.Object),
	}

	if req.Op == OpPutUnique {
		payload.ReqID = forwardID
		a.putUniqueMu.Lock()
		a.putUniqueWait[forwardID] = pendingPutUnique{reply: req.ReplyTo}
		a.putUniqueMu.Unlock()
	}

	cmd := command.Command{Sender: a.self, Type: cmdType, Payload: payload}
	select {
	case a.forwardToMaster <- cmd:
	case <-ctx.Done():
	}
}

func opToCommandType(op OpType) command.Type {
	switch op {
	case OpPut:
		return command.TypePut
	case OpErase:
		return command.TypeErase
	case OpClear:
		return command.TypeClear
	case OpAdd:
		return command.TypeAdd
	case OpSubtract:
		return command.TypeSubtract
	case OpPutUnique:
		return command.TypePutUnique
	default:
		return command.TypePut
	}
}

// handleForwardedWrite runs on a master when a clone has forwarded a
// pre-commit write or a snapshot_request (spec §4.3 "Snapshot
// protocol").
func (a *Actor) handleForwardedWrite(ctx context.Context, cmd command.Command) {
	switch cmd.Type {
	case command.TypeSnapshotRequest:
		a.handleSnapshotRequest(ctx, cmd)
	case command.TypePutUnique:
		inserted := a.masterApplyPutUnique(ctx, cmd.Payload.Key, cmd.Payload.Value, nanoToTime(cmd.Payload.Expiry), cmd.Payload.Publisher)
		reply := command.Command{
			Sender: a.self,
			Type:   command.TypePutUniqueResult,
			Payload: command.Payload{
				ReqID: cmd.Payload.ReqID,
				Bool:  inserted,
			},
		}
		a.sendDirectToClone(ctx, cmd.Payload.CloneID, reply)
	default:
		op := commandTypeToOp(cmd.Type)
		a.masterApplyWrite(ctx, op, cmd.Payload.Key, cmd.Payload.Value, cmd.Payload.InitType, nanoToTime(cmd.Payload.Expiry), cmd.Payload.Publisher)
	}
}

func commandTypeToOp(t command.Type) OpType {
	switch t {
	case command.TypePut:
		return OpPut
	case command.TypeErase:
		return OpErase
	case command.TypeClear:
		return OpClear
	case command.TypeAdd:
		return OpAdd
	case command.TypeSubtract:
		return OpSubtract
	default:
		return OpPut
	}
}

// handleAppliedCommand runs on a clone receiving a broadcast command
// from its master (spec §4.3 "Command application").
func (a *Actor) handleAppliedCommand(ctx context.Context, cmd command.Command) {
	if cmd.Sender != a.master {
		a.log.Warn("dropping command from unbound sender", "store", a.storeName, "sender", cmd.Sender.String())
		return
	}

	wasResyncing := a.cloneState.Resyncing()
	outcome, ready := a.cloneState.Observe(cmd)
	switch outcome {
	case command.OutcomeDuplicate:
		return
	case command.OutcomeBuffered, command.OutcomeDroppedForResync:
		if !wasResyncing {
			a.requestSnapshot()
		}
		return
	case command.OutcomeApply:
		for _, c := range ready {
			a.applyReplicatedCommand(ctx, c)
		}
	}
}

// applyReplicatedCommand applies one already-ordered command to a
// clone's backend and emits the matching local event. Backend errors
// here are logged, not fatal (spec §7 propagation policy: "Backend
// errors during apply-from-command on a clone are LOGGED and not
// fatal... they surface a stale_data warning event").
func (a *Actor) applyReplicatedCommand(ctx context.Context, cmd command.Command) {
	p := cmd.Payload
	expiry := nanoToTime(p.Expiry)

	switch cmd.Type {
	case command.TypePut:
		existed, _ := a.be.Exists(ctx, p.Key)
		var oldVal data.Value
		if existed {
			oldVal, _ = a.be.Get(ctx, p.Key)
		}
		if err := a.be.Put(ctx, p.Key, p.Value, expiry); err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		a.bus.Publish(ctx, a.EventTopic(), events.MutationFor(existed, a.storeName, p.Key, oldVal, p.Value, expiry, p.Publisher))

	case command.TypeErase:
		existed, _ := a.be.Exists(ctx, p.Key)
		if err := a.be.Erase(ctx, p.Key); err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		if existed {
			a.bus.Publish(ctx, a.EventTopic(), events.Erase(a.storeName, p.Key, p.Publisher))
		}

	case command.TypeExpire:
		removed, err := a.be.Expire(ctx, p.Key, time.Now())
		if err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		if removed {
			a.bus.Publish(ctx, a.EventTopic(), events.Expire(a.storeName, p.Key, p.Publisher))
		}

	case command.TypeClear:
		if err := a.be.Clear(ctx); err != nil {
			a.logStaleData(cmd.Type, data.None(), err)
		}

	case command.TypeAdd:
		existed, _ := a.be.Exists(ctx, p.Key)
		var oldVal data.Value
		if existed {
			oldVal, _ = a.be.Get(ctx, p.Key)
		}
		newVal, err := a.be.Add(ctx, p.Key, p.Value, p.InitType, expiry)
		if err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		a.bus.Publish(ctx, a.EventTopic(), events.MutationFor(existed, a.storeName, p.Key, oldVal, newVal, expiry, p.Publisher))

	case command.TypeSubtract:
		oldVal, err := a.be.Get(ctx, p.Key)
		if err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		newVal, err := a.be.Subtract(ctx, p.Key, p.Value, expiry)
		if err != nil {
			a.logStaleData(cmd.Type, p.Key, err)
			return
		}
		a.bus.Publish(ctx, a.EventTopic(), events.Update(a.storeName, p.Key, oldVal, newVal, expiry, p.Publisher))
	}
}

func (a *Actor) logStaleData(cmdType command.Type, key data.Value, err error) {
	a.log.Error("stale_data applying replicated command", "store", a.storeName, "command", string(cmdType), "error", err)
	a.bus.Publish(context.Background(), a.EventTopic(), data.NewVector(data.Enum("stale_data"), data.String(a.storeName), key))
}

// handleTick runs the expiry scan (master only, spec §4.3 "Expiry
// tick"). The backend's Expiries is ordered ascending so the scan can
// stop at the first not-yet-due entry.
func (a *Actor) handleTick(ctx context.Context) {
	if a.role != RoleMaster {
		return
	}
	now := time.Now()
	expiries, err := a.be.Expiries(ctx)
	if err != nil {
		a.log.Error("tick: failed to list expiries", "store", a.storeName, "error", err)
		return
	}
	for _, ke := range expiries {
		if ke.Expiry.After(now) {
			break
		}
		removed, err := a.be.Expire(ctx, ke.Key, now)
		if err != nil {
			a.log.Error("tick: expire failed", "store", a.storeName, "error", err)
			continue
		}
		if !removed {
			continue
		}
		a.publishEventAndCommand(ctx, events.Expire(a.storeName, ke.Key, a.self), command.TypeExpire, command.Payload{Key: ke.Key, Publisher: a.self})
	}
}
