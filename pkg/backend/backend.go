// Package backend defines the abstract persistence contract (spec
// §4.2) that a store actor mutates: put/add/subtract/erase/clear/get/
// exists/keys/expire/snapshot/expiries. Two implementations live in
// sibling packages: pkg/backend/memory and pkg/backend/sqlite.
//
// Grounded on pkg/db.DB interface (context-first,
// interface-first storage contract) narrowed to the single-key-space,
// single-owner shape this spec needs — no ReadOptions/WriteOptions,
// iterators, or compaction, since those are LSM-engine concerns this
// subsystem doesn't have.
package backend

import (
	"context"
	"time"

	"github.com/nimbuskv/broker/pkg/data"
)

// Entry is a stored (key, value, expiry) triple, per spec §3.
type Entry struct {
	Key    data.Value
	Value  data.Value
	Expiry *time.Time // nil means no expiry
}

// Snapshot is the full-copy result of Backend.Snapshot, used by the
// master→clone snapshot_reply payload (spec §4.3).
type Snapshot struct {
	Entries []Entry
}

// Backend is the single-threaded key-value engine a store actor owns
// exclusively (spec §5: "Backends are accessed only by their owning
// store actor"). Implementations need no internal locking for that
// reason, though a persistent backend may serialize its own I/O.
type Backend interface {
	Put(ctx context.Context, key, value data.Value, expiry *time.Time) error
	Add(ctx context.Context, key, delta data.Value, initType data.Kind, expiry *time.Time) (data.Value, error)
	Subtract(ctx context.Context, key, delta data.Value, expiry *time.Time) (data.Value, error)
	Erase(ctx context.Context, key data.Value) error
	Clear(ctx context.Context) error
	// Expire removes key iff present and its expiry is <= now. Reports
	// whether a removal happened.
	Expire(ctx context.Context, key data.Value, now time.Time) (removed bool, err error)
	Get(ctx context.Context, key data.Value) (data.Value, error)
	Exists(ctx context.Context, key data.Value) (bool, error)
	Size(ctx context.Context) (uint64, error)
	Keys(ctx context.Context) (data.Value, error) // a KindSet of keys
	Snapshot(ctx context.Context) (Snapshot, error)
	// Expiries returns (key, expiry) pairs for every entry that has one,
	// ordered by expiry ascending so a tick scan can stop early.
	Expiries(ctx context.Context) ([]KeyExpiry, error)
	Close() error
}

// KeyExpiry pairs a key with its expiry instant.
type KeyExpiry struct {
	Key    data.Value
	Expiry time.Time
}
