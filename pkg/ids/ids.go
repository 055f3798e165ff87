// Package ids defines the small identity types shared across the store
// subsystem: endpoints, actors, and the entity ids that name the
// originator of a command or event (spec §3 "Entity id").
//
// Adapted from pkg/types/types.go's NodeID/Term/LogIndex
// grouping — generalized from a single NodeID to an endpoint+actor
// pair, since this subsystem has no raft-style terms.
package ids

import "github.com/google/uuid"

// EndpointID names a peering endpoint (a network-addressable broker
// process). The zero value is the "absent endpoint" sentinel (spec §3).
type EndpointID string

// NilEndpoint is the absent-endpoint sentinel named in spec §3.
const NilEndpoint EndpointID = ""

// ActorID names an actor within an endpoint (a store actor, a proxy
// mailbox actor, a requester).
type ActorID string

// NewActorID mints a fresh random actor id, following the same convention
// of github.com/google/uuid for request/proposal correlation ids.
func NewActorID() ActorID {
	return ActorID(uuid.NewString())
}

// EntityID is the (endpoint, object) pair from spec §3, used to stamp
// publishers on commands and events.
type EntityID struct {
	Endpoint EndpointID
	Object   ActorID
}

// NilEntity is the entity id of nothing in particular: both slots
// absent. Spec §4.5 encodes it as two nil data slots.
var NilEntity = EntityID{}

func (e EntityID) IsNil() bool {
	return e.Endpoint == NilEndpoint && e.Object == ""
}

func (e EntityID) String() string {
	if e.IsNil() {
		return "nil"
	}
	return string(e.Endpoint) + "/" + string(e.Object)
}
