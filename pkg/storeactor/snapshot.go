package storeactor

import (
	"context"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/command"
	"github.com/nimbuskv/broker/pkg/data"
)

// decodeCommandEvent recovers a command.Command from a bus event
// payload, used by a clone's subscription to its master's command
// topic.
func decodeCommandEvent(v data.Value) (command.Command, bool) {
	return command.Decode(v)
}

// requestSnapshot sends a snapshot_request to the bound master (spec
// §4.3 "Snapshot protocol": "A clone, on attach or after a gap, sends
// snapshot_request").
func (a *Actor) requestSnapshot() {
	if a.forwardToMaster == nil {
		return
	}
	a.cloneState.BeginResync()
	cmd := command.Command{
		Sender: a.self,
		Type:   command.TypeSnapshotRequest,
		Payload: command.Payload{
			CloneID: string(a.self.Object),
		},
	}
	select {
	case a.forwardToMaster <- cmd:
	default:
	}
}

// handleSnapshotRequest runs on a master: it replies with a full copy
// of the backend plus the sequencer's current position, per spec
// §4.3 "snapshot_reply(seq, entries, expiries)".
func (a *Actor) handleSnapshotRequest(ctx context.Context, cmd command.Command) {
	snap, err := a.be.Snapshot(ctx)
	if err != nil {
		a.log.Error("snapshot failed", "store", a.storeName, "error", err)
		return
	}
	expiries, err := a.be.Expiries(ctx)
	if err != nil {
		a.log.Error("expiries listing failed during snapshot", "store", a.storeName, "error", err)
		return
	}

	entries := make([]command.SnapshotEntry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		entries = append(entries, command.SnapshotEntry{Key: e.Key, Value: e.Value, Expiry: expiryNano(e.Expiry)})
	}
	expList := make([]command.SnapshotExpiry, 0, len(expiries))
	for _, e := range expiries {
		expList = append(expList, command.SnapshotExpiry{Key: e.Key, Expiry: e.Expiry.UnixNano()})
	}

	reply := command.Command{
		Sender: a.self,
		Type:   command.TypeSnapshotReply,
		Payload: command.Payload{
			Seq:      a.seq.Current(),
			Entries:  entries,
			Expiries: expList,
		},
	}
	a.sendDirectToClone(ctx, cmd.Payload.CloneID, reply)
}

// handleSnapshotReply runs on a clone: it replaces the local backend's
// contents wholesale and resets the replication cursor (spec §4.3:
// "The clone replaces its backend contents, sets expected_seq =
// seq + 1, and begins normal application").
func (a *Actor) handleSnapshotReply(ctx context.Context, cmd command.Command) {
	p := cmd.Payload
	if err := a.be.Clear(ctx); err != nil {
		a.log.Error("snapshot apply: clear failed", "store", a.storeName, "error", err)
		return
	}
	for _, e := range p.Entries {
		if err := a.be.Put(ctx, e.Key, e.Value, nanoToTime(e.Expiry)); err != nil {
			a.log.Error("snapshot apply: put failed", "store", a.storeName, "error", err)
		}
	}
	a.cloneState.ApplySnapshot(p.Seq)
	for _, ready := range a.cloneState.DrainReady() {
		a.applyReplicatedCommand(ctx, ready)
	}
}

// handleDirect dispatches a clone-addressed direct message (spec §6
// command table: snapshot_reply, put_unique_result, ack_clone).
func (a *Actor) handleDirect(ctx context.Context, cmd command.Command) {
	switch cmd.Type {
	case command.TypeSnapshotReply:
		a.handleSnapshotReply(ctx, cmd)
	case command.TypePutUniqueResult:
		a.putUniqueMu.Lock()
		waiter, ok := a.putUniqueWait[cmd.Payload.ReqID]
		if ok {
			delete(a.putUniqueWait, cmd.Payload.ReqID)
		}
		a.putUniqueMu.Unlock()
		if ok {
			select {
			case waiter.reply <- brokererr.Ok[data.Value](data.Bool(cmd.Payload.Bool)):
			default:
			}
		}
	case command.TypeAckClone:
		a.log.Info("attach acknowledged", "store", a.storeName)
	}
}
