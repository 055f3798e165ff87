package storeactor

import (
	"time"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

// Role is master or clone per spec §4.3.
type Role int

const (
	RoleMaster Role = iota
	RoleClone
)

func (r Role) String() string {
	if r == RoleMaster {
		return "master"
	}
	return "clone"
}

// OpType enumerates the request operations spec §4.3 lists under
// "Request operations (from frontend/proxy)".
type OpType int

const (
	OpExists OpType = iota
	OpGet
	OpGetIndexFromValue
	OpKeys
	OpPut
	OpErase
	OpClear
	OpAdd
	OpSubtract
	OpPutUnique
)

func (o OpType) isRead() bool {
	switch o {
	case OpExists, OpGet, OpGetIndexFromValue, OpKeys:
		return true
	default:
		return false
	}
}

// Request is one frontend-issued operation (spec §4.3 "Request
// operations"). ReplyTo is nil for fire-and-forget modifiers; it is
// populated for every read operation and for put_unique.
type Request struct {
	Requester ids.EntityID
	RequestID uint64
	Op        OpType

	Key      data.Value
	Value    data.Value // delta for add/subtract, new value for put/put_unique
	Index    data.Value // for get_index_from_value
	InitType data.Kind  // for add
	Expiry   *time.Time

	ReplyTo chan brokererr.Expected[data.Value]
}

func (r Request) reply(result brokererr.Expected[data.Value]) {
	if r.ReplyTo == nil {
		return
	}
	select {
	case r.ReplyTo <- result:
	default:
	}
}
