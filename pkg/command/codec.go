package command

import (
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

// Encode projects a Command onto a data.Value table so it can travel
// over pkg/bus (which only carries data.Value payloads), the same way
// spec §9's Design Note "Command channels" keeps commands flowing
// through the typed message bus rather than a side channel. Every
// scalar payload field is bound regardless of cmd.Type (unused ones
// carry their zero value); only expiry, entries and expiries are left
// unbound when absent.
func Encode(cmd Command) data.Value {
	t := data.NewTable()
	t = t.TablePut(data.String("sender_endpoint"), data.String(string(cmd.Sender.Endpoint)))
	t = t.TablePut(data.String("sender_object"), data.String(string(cmd.Sender.Object)))
	t = t.TablePut(data.String("seq"), data.Count(cmd.Seq))
	t = t.TablePut(data.String("type"), data.Enum(string(cmd.Type)))

	p := cmd.Payload
	t = t.TablePut(data.String("key"), p.Key)
	t = t.TablePut(data.String("value"), p.Value)
	t = t.TablePut(data.String("init_type"), data.Count(uint64(p.InitType)))
	if p.Expiry != nil {
		t = t.TablePut(data.String("expiry"), data.Int(*p.Expiry))
	}
	t = t.TablePut(data.String("publisher_endpoint"), data.String(string(p.Publisher.Endpoint)))
	t = t.TablePut(data.String("publisher_object"), data.String(string(p.Publisher.Object)))
	t = t.TablePut(data.String("req_id"), data.Count(p.ReqID))
	t = t.TablePut(data.String("bool"), data.Bool(p.Bool))
	t = t.TablePut(data.String("clone_id"), data.String(p.CloneID))
	t = t.TablePut(data.String("snapshot_seq"), data.Count(p.Seq))

	if p.Entries != nil {
		entryVecs := make([]data.Value, 0, len(p.Entries))
		for _, e := range p.Entries {
			expiry := data.None()
			if e.Expiry != nil {
				expiry = data.Int(*e.Expiry)
			}
			entryVecs = append(entryVecs, data.NewVector(e.Key, e.Value, expiry))
		}
		t = t.TablePut(data.String("entries"), data.NewVector(entryVecs...))
	}
	if p.Expiries != nil {
		expVecs := make([]data.Value, 0, len(p.Expiries))
		for _, e := range p.Expiries {
			expVecs = append(expVecs, data.NewVector(e.Key, data.Int(e.Expiry)))
		}
		t = t.TablePut(data.String("expiries"), data.NewVector(expVecs...))
	}

	return t
}

// Decode reverses Encode. ok is false if v is not a well-formed
// command table.
func Decode(v data.Value) (Command, bool) {
	if v.Kind() != data.KindTable {
		return Command{}, false
	}

	typeVal, ok := v.TableGet(data.String("type"))
	if !ok {
		return Command{}, false
	}

	senderEndpoint, _ := v.TableGet(data.String("sender_endpoint"))
	senderObject, _ := v.TableGet(data.String("sender_object"))
	seqVal, _ := v.TableGet(data.String("seq"))
	key, _ := v.TableGet(data.String("key"))
	value, _ := v.TableGet(data.String("value"))
	initType, _ := v.TableGet(data.String("init_type"))
	pubEndpoint, _ := v.TableGet(data.String("publisher_endpoint"))
	pubObject, _ := v.TableGet(data.String("publisher_object"))
	reqID, _ := v.TableGet(data.String("req_id"))
	boolVal, _ := v.TableGet(data.String("bool"))
	cloneID, _ := v.TableGet(data.String("clone_id"))
	snapSeq, _ := v.TableGet(data.String("snapshot_seq"))

	var expiry *int64
	if expVal, ok := v.TableGet(data.String("expiry")); ok {
		e := expVal.Int()
		expiry = &e
	}

	var entries []SnapshotEntry
	if entriesVal, ok := v.TableGet(data.String("entries")); ok {
		for _, ev := range entriesVal.Vector() {
			parts := ev.Vector()
			if len(parts) != 3 {
				continue
			}
			var eExpiry *int64
			if parts[2].Kind() != data.KindNone {
				e := parts[2].Int()
				eExpiry = &e
			}
			entries = append(entries, SnapshotEntry{Key: parts[0], Value: parts[1], Expiry: eExpiry})
		}
	}
	var expiries []SnapshotExpiry
	if expsVal, ok := v.TableGet(data.String("expiries")); ok {
		for _, ev := range expsVal.Vector() {
			parts := ev.Vector()
			if len(parts) != 2 {
				continue
			}
			expiries = append(expiries, SnapshotExpiry{Key: parts[0], Expiry: parts[1].Int()})
		}
	}

	cmd := Command{
		Sender: ids.EntityID{
			Endpoint: ids.EndpointID(senderEndpoint.Str()),
			Object:   ids.ActorID(senderObject.Str()),
		},
		Seq:  seqVal.Count(),
		Type: Type(typeVal.EnumTag()),
		Payload: Payload{
			Key:      key,
			Value:    value,
			InitType: data.Kind(initType.Count()),
			Expiry:   expiry,
			Publisher: ids.EntityID{
				Endpoint: ids.EndpointID(pubEndpoint.Str()),
				Object:   ids.ActorID(pubObject.Str()),
			},
			ReqID:    reqID.Count(),
			Bool:     boolVal.Bool(),
			CloneID:  cloneID.Str(),
			Seq:      snapSeq.Count(),
			Entries:  entries,
			Expiries: expiries,
		},
	}
	return cmd, true
}
