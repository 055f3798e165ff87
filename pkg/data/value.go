package data

import (
	"fmt"
	"net/netip"
	"time"
)

// tableEntry is one binding of a table: the original index value paired
// with its bound value. Kept alongside the canonical-key map so Keys()
// and iteration can hand back real Values, not their encoded form.
type tableEntry struct {
	index Value
	value Value
}

// Value is the tagged union described in spec §3. Zero value is KindNone.
type Value struct {
	kind Kind

	b      bool
	count  uint64
	i      int64
	r      float64
	s      string // string payload, and enum tag name
	addr   netip.Addr
	subnet netip.Prefix
	port   uint16
	ts     time.Time
	dur    time.Duration

	set   map[string]Value
	table map[string]tableEntry
	vec   []Value
}

func None() Value { return Value{kind: KindNone} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Count(c uint64) Value { return Value{kind: KindCount, count: c} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Real(r float64) Value { return Value{kind: KindReal, r: r} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Addr(a netip.Addr) Value { return Value{kind: KindAddr, addr: a} }

func Subnet(p netip.Prefix) Value { return Value{kind: KindSubnet, subnet: p} }

func Port(p uint16) Value { return Value{kind: KindPort, port: p} }

func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t.UTC()} }

func Timespan(d time.Duration) Value { return Value{kind: KindTimespan, dur: d} }

func Enum(tag string) Value { return Value{kind: KindEnum, s: tag} }

func NewSet(items ...Value) Value {
	v := Value{kind: KindSet, set: make(map[string]Value, len(items))}
	for _, it := range items {
		v.set[it.canonicalKey()] = it
	}
	return v
}

func NewTable() Value {
	return Value{kind: KindTable, table: make(map[string]tableEntry)}
}

func NewVector(items ...Value) Value {
	v := Value{kind: KindVector, vec: make([]Value, len(items))}
	copy(v.vec, items)
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) Bool() bool             { return v.b }
func (v Value) Count() uint64          { return v.count }
func (v Value) Int() int64             { return v.i }
func (v Value) Real() float64          { return v.r }
func (v Value) Str() string            { return v.s }
func (v Value) EnumTag() string        { return v.s }
func (v Value) Addr() netip.Addr       { return v.addr }
func (v Value) Subnet() netip.Prefix   { return v.subnet }
func (v Value) Port() uint16           { return v.port }
func (v Value) Timestamp() time.Time   { return v.ts }
func (v Value) Timespan() time.Duration { return v.dur }

// Vector returns the underlying slice; callers must not mutate it.
func (v Value) Vector() []Value { return v.vec }

// SetMembers returns the set's elements in canonical-key order, so
// repeated calls are stable even though the underlying map isn't.
func (v Value) SetMembers() []Value {
	keys := sortedKeys(v.set)
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, v.set[k])
	}
	return out
}

// SetContains reports set membership by structural equality.
func (v Value) SetContains(item Value) bool {
	_, ok := v.set[item.canonicalKey()]
	return ok
}

// TableGet looks up a binding by its index value.
func (v Value) TableGet(index Value) (Value, bool) {
	e, ok := v.table[index.canonicalKey()]
	if !ok {
		return Value{}, false
	}
	return e.value, true
}

// TablePut inserts or overwrites a binding. Returns a new Value; the
// receiver is left untouched (tables are treated as immutable from the
// caller's perspective, mirroring how Add/Subtract return target').
func (v Value) TablePut(index, val Value) Value {
	out := v.cloneTable()
	out.table[index.canonicalKey()] = tableEntry{index: index, value: val}
	return out
}

// TableDelete removes a binding by index, returning a new Value.
func (v Value) TableDelete(index Value) Value {
	out := v.cloneTable()
	delete(out.table, index.canonicalKey())
	return out
}

// TableEntries returns bindings in canonical-key order (stable, but
// not guaranteed to match any particular insertion order).
func (v Value) TableEntries() [][2]Value {
	keys := sortedKeys(v.table)
	out := make([][2]Value, 0, len(keys))
	for _, k := range keys {
		e := v.table[k]
		out = append(out, [2]Value{e.index, e.value})
	}
	return out
}

func (v Value) Len() int {
	switch v.kind {
	case KindSet:
		return len(v.set)
	case KindTable:
		return len(v.table)
	case KindVector:
		return len(v.vec)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

func (v Value) cloneTable() Value {
	out := Value{kind: KindTable, table: make(map[string]tableEntry, len(v.table)+1)}
	for k, e := range v.table {
		out.table[k] = e
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort avoids importing sort for a handful of keys
	// in the common case, but falls back fine for larger ones too.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func (v Value) GoString() string {
	return fmt.Sprintf("data.Value{%s}", v.kind)
}

// ZeroOf returns the zero/empty value for a kind, used by Add when the
// target key is absent (spec §4.1).
func ZeroOf(kind Kind) Value {
	switch kind {
	case KindBool:
		return Bool(false)
	case KindCount:
		return Count(0)
	case KindInt:
		return Int(0)
	case KindReal:
		return Real(0)
	case KindString:
		return String("")
	case KindTimestamp:
		return Timestamp(time.Time{})
	case KindTimespan:
		return Timespan(0)
	case KindSet:
		return NewSet()
	case KindTable:
		return NewTable()
	case KindVector:
		return NewVector()
	default:
		return None()
	}
}
