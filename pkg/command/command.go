// Package command implements the master↔clone replication protocol
// (spec §4.3, §6): the command vocabulary, the master's sequencer, and
// the clone-side gap/resync state machine.
//
// Grounded on pkg/replication.LogEntry/Log (sequence-
// numbered entries shipped to followers) and pkg/consensus.FSM.Apply
// (apply-committed-entry contract), narrowed from a Raft log to the
// single-master broadcast this spec describes — there is no leader
// election or quorum here, only one authoritative sequencer per store.
package command

import (
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

// Type enumerates the over-the-wire command tags from spec §6.
type Type string

const (
	TypePut              Type = "put"
	TypePutUnique        Type = "put_unique"
	TypePutUniqueResult  Type = "put_unique_result"
	TypeErase            Type = "erase"
	TypeExpire           Type = "expire"
	TypeClear            Type = "clear"
	TypeAdd              Type = "add"
	TypeSubtract         Type = "subtract"
	TypeSnapshotRequest  Type = "snapshot_request"
	TypeSnapshotReply    Type = "snapshot_reply"
	TypeAckClone         Type = "ack_clone"
)

// Payload is a Type-tagged union of the fields spec §6's command table
// lists. Only the fields relevant to Type are populated; this mirrors
// a replicated LogEntry{Index, Term, Data} in spirit but keeps the
// payload typed rather than opaque bytes, since the store actor needs
// to inspect it without a second decode pass.
type Payload struct {
	Key        data.Value
	Value      data.Value
	InitType   data.Kind
	Expiry     *int64 // UnixNano, nil means no expiry
	Publisher  ids.EntityID
	ReqID      uint64
	Bool       bool
	CloneID    string
	Seq        uint64
	Entries    []SnapshotEntry
	Expiries   []SnapshotExpiry
}

// SnapshotEntry is one (key, value, expiry) row of a snapshot_reply.
type SnapshotEntry struct {
	Key    data.Value
	Value  data.Value
	Expiry *int64
}

// SnapshotExpiry pairs a key with its expiry instant, mirroring
// backend.KeyExpiry for the wire-level snapshot_reply payload.
type SnapshotExpiry struct {
	Key    data.Value
	Expiry int64
}

// Command is the structured message from spec §3 "Command":
// {sender, seq, command_type, payload}. Seq is meaningful only for
// commands the master tags (everything except snapshot_request and
// frontend→master pre-commit requests, per spec §6).
type Command struct {
	Sender  ids.EntityID
	Seq     uint64
	Type    Type
	Payload Payload
}
