package data

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"
)

// Encode produces a self-describing binary form of v, used internally
// by persistent backends to store a value byte-for-byte reconstructible
// (spec §6 "Persisted state layout": the backend must store enough to
// reconstruct the data value identically). This is NOT the wire framing
// between broker endpoints — that serialization is explicitly out of
// scope (spec §1) and owned by the surrounding transport.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNone:
	case KindBool:
		if v.b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindCount:
		writeUint64(buf, v.count)
	case KindInt:
		writeUint64(buf, uint64(v.i))
	case KindReal:
		writeUint64(buf, mathFloatBits(v.r))
	case KindString, KindEnum:
		writeBytes(buf, []byte(v.s))
	case KindAddr:
		b, _ := v.addr.MarshalBinary()
		writeBytes(buf, b)
	case KindSubnet:
		b, _ := v.subnet.MarshalBinary()
		writeBytes(buf, b)
	case KindPort:
		writeUint64(buf, uint64(v.port))
	case KindTimestamp:
		writeUint64(buf, uint64(v.ts.UnixNano()))
	case KindTimespan:
		writeUint64(buf, uint64(v.dur))
	case KindSet:
		members := v.SetMembers()
		writeUint64(buf, uint64(len(members)))
		for _, m := range members {
			encodeInto(buf, m)
		}
	case KindTable:
		entries := v.TableEntries()
		writeUint64(buf, uint64(len(entries)))
		for _, e := range entries {
			encodeInto(buf, e[0])
			encodeInto(buf, e[1])
		}
	case KindVector:
		writeUint64(buf, uint64(len(v.vec)))
		for _, e := range v.vec {
			encodeInto(buf, e)
		}
	}
}

// Decode reverses Encode.
func Decode(b []byte) (Value, error) {
	buf := bytes.NewBuffer(b)
	return decodeFrom(buf)
}

func decodeFrom(buf *bytes.Buffer) (Value, error) {
	kindByte, err := buf.ReadByte()
	if err != nil {
		return Value{}, fmt.Errorf("data: decode kind: %w", err)
	}
	kind := Kind(kindByte)

	switch kind {
	case KindNone:
		return None(), nil
	case KindBool:
		b, err := buf.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case KindCount:
		u, err := readUint64(buf)
		return Count(u), err
	case KindInt:
		u, err := readUint64(buf)
		return Int(int64(u)), err
	case KindReal:
		u, err := readUint64(buf)
		return Real(mathFloatFromBits(u)), err
	case KindString:
		s, err := readBytes(buf)
		return String(string(s)), err
	case KindEnum:
		s, err := readBytes(buf)
		return Enum(string(s)), err
	case KindAddr:
		b, err := readBytes(buf)
		if err != nil {
			return Value{}, err
		}
		var a netip.Addr
		if err := a.UnmarshalBinary(b); err != nil {
			return Value{}, err
		}
		return Addr(a), nil
	case KindSubnet:
		b, err := readBytes(buf)
		if err != nil {
			return Value{}, err
		}
		var p netip.Prefix
		if err := p.UnmarshalBinary(b); err != nil {
			return Value{}, err
		}
		return Subnet(p), nil
	case KindPort:
		u, err := readUint64(buf)
		return Port(uint16(u)), err
	case KindTimestamp:
		u, err := readUint64(buf)
		return Timestamp(time.Unix(0, int64(u)).UTC()), err
	case KindTimespan:
		u, err := readUint64(buf)
		return Timespan(time.Duration(u)), err
	case KindSet:
		n, err := readUint64(buf)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := decodeFrom(buf)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return NewSet(items...), nil
	case KindTable:
		n, err := readUint64(buf)
		if err != nil {
			return Value{}, err
		}
		out := NewTable()
		for i := uint64(0); i < n; i++ {
			idx, err := decodeFrom(buf)
			if err != nil {
				return Value{}, err
			}
			val, err := decodeFrom(buf)
			if err != nil {
				return Value{}, err
			}
			out = out.TablePut(idx, val)
		}
		return out, nil
	case KindVector:
		n, err := readUint64(buf)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := decodeFrom(buf)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return NewVector(items...), nil
	default:
		return Value{}, fmt.Errorf("data: decode: unknown kind %d", kindByte)
	}
}

func writeUint64(buf *bytes.Buffer, u uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], u)
	buf.Write(tmp[:])
}

func readUint64(buf *bytes.Buffer) (uint64, error) {
	var tmp [8]byte
	if _, err := buf.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint64(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytes(buf *bytes.Buffer) ([]byte, error) {
	n, err := readUint64(buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := buf.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
