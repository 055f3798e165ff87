package adminhttp

import "github.com/nimbuskv/broker/pkg/data"

// toJSON renders a data.Value as a plain interface{} tree suitable for
// encoding/json, per spec §6.1's `{"value": "<data-as-json>"}` contract.
// There is no canonical JSON encoding for `data` values (the wire
// format actually pinned down is the event-vector table in §4.5), so
// this is deliberately just good-enough for operator debugging, not a
// round-trippable codec.
func toJSON(v data.Value) interface{} {
	switch v.Kind() {
	case data.KindNone:
		return nil
	case data.KindBool:
		return v.Bool()
	case data.KindCount:
		return v.Count()
	case data.KindInt:
		return v.Int()
	case data.KindReal:
		return v.Real()
	case data.KindString:
		return v.Str()
	case data.KindEnum:
		return v.EnumTag()
	case data.KindAddr:
		return v.Addr().String()
	case data.KindSubnet:
		return v.Subnet().String()
	case data.KindPort:
		return v.Port()
	case data.KindTimestamp:
		return v.Timestamp()
	case data.KindTimespan:
		return v.Timespan().String()
	case data.KindVector:
		out := make([]interface{}, 0, len(v.Vector()))
		for _, e := range v.Vector() {
			out = append(out, toJSON(e))
		}
		return out
	case data.KindSet:
		members := v.SetMembers()
		out := make([]interface{}, 0, len(members))
		for _, e := range members {
			out = append(out, toJSON(e))
		}
		return out
	case data.KindTable:
		out := make(map[string]interface{}, len(v.TableEntries()))
		for _, pair := range v.TableEntries() {
			out[pair[0].CanonicalKey()] = toJSON(pair[1])
		}
		return out
	default:
		return nil
	}
}
