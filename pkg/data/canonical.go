package data

import (
	"fmt"
	"strconv"
	"strings"
)

// canonicalKey produces a deterministic string encoding used internally
// as a map key for sets and tables, where Value itself (holding slices
// and maps) is not a comparable Go type. Values that compare Equal
// always produce the same canonicalKey.
func (v Value) canonicalKey() string {
	var sb strings.Builder
	v.writeCanonical(&sb)
	return sb.String()
}

// CanonicalKey exposes the same deterministic encoding for callers
// outside this package that need a comparable, orderable stand-in for
// an arbitrary Value — backend implementations keying a concurrent map
// or ordered index by store key, for instance.
func (v Value) CanonicalKey() string {
	return v.canonicalKey()
}

func (v Value) writeCanonical(sb *strings.Builder) {
	sb.WriteByte(byte(v.kind))
	sb.WriteByte(':')
	switch v.kind {
	case KindNone:
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindCount:
		sb.WriteString(strconv.FormatUint(v.count, 10))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindReal:
		sb.WriteString(strconv.FormatFloat(v.r, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindAddr:
		sb.WriteString(v.addr.String())
	case KindSubnet:
		sb.WriteString(v.subnet.String())
	case KindPort:
		sb.WriteString(strconv.FormatUint(uint64(v.port), 10))
	case KindTimestamp:
		sb.WriteString(v.ts.Format(timeCanonicalLayout))
	case KindTimespan:
		sb.WriteString(v.dur.String())
	case KindEnum:
		sb.WriteString(strconv.Quote(v.s))
	case KindSet:
		keys := sortedKeys(v.set)
		sb.WriteByte('{')
		for _, k := range keys {
			sb.WriteString(k)
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
	case KindTable:
		keys := sortedKeys(v.table)
		sb.WriteByte('{')
		for _, k := range keys {
			e := v.table[k]
			e.index.writeCanonical(sb)
			sb.WriteString("=>")
			e.value.writeCanonical(sb)
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
	case KindVector:
		sb.WriteByte('[')
		for _, e := range v.vec {
			e.writeCanonical(sb)
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(fmt.Sprintf("?%d", v.kind))
	}
}

const timeCanonicalLayout = "2006-01-02T15:04:05.000000000Z"

// Equal reports structural equality as specified in spec §3.
func (v Value) Equal(other Value) bool {
	return v.canonicalKey() == other.canonicalKey()
}

// Compare orders two values of the same kind; composites compare
// lexicographically element-by-element (spec §3). ok is false when the
// kinds differ and no ordering is defined.
func (v Value) Compare(other Value) (cmp int, ok bool) {
	if v.kind != other.kind {
		return 0, false
	}
	switch v.kind {
	case KindNone:
		return 0, true
	case KindBool:
		return boolCmp(v.b, other.b), true
	case KindCount:
		return uint64Cmp(v.count, other.count), true
	case KindInt:
		return int64Cmp(v.i, other.i), true
	case KindReal:
		return float64Cmp(v.r, other.r), true
	case KindString, KindEnum:
		return strings.Compare(v.s, other.s), true
	case KindPort:
		return int(v.port) - int(other.port), true
	case KindTimestamp:
		if v.ts.Before(other.ts) {
			return -1, true
		}
		if v.ts.After(other.ts) {
			return 1, true
		}
		return 0, true
	case KindTimespan:
		return int64Cmp(int64(v.dur), int64(other.dur)), true
	case KindAddr:
		return v.addr.Compare(other.addr), true
	case KindVector:
		return compareVectors(v.vec, other.vec), true
	default:
		// sets/tables/subnets have no defined total order beyond
		// equality; treat as equal-or-unordered.
		if v.Equal(other) {
			return 0, true
		}
		return 0, false
	}
}

func compareVectors(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c, ok := a[i].Compare(b[i]); ok && c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func uint64Cmp(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func int64Cmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Cmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
