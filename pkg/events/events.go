// Package events projects store mutations into the self-describing
// data vectors spec §4.5 publishes onto a store's event topic, built
// fresh against spec §4.5's table (no prior package in this codebase
// had an equivalent mutation-to-wire-event projection).
package events

import (
	"time"

	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/ids"
)

// Topic returns the well-known event topic for a store, using
// bus.TopicSeparator so the hierarchy separator stays configurable per
// spec §6's "MUST allow the separator to be configurable" note.
func Topic(storeName string) string {
	return "store_events" + bus.TopicSeparator + storeName
}

// entityVector encodes publisher per spec §4.5's rule: two slots
// (endpoint_as_data, object_id); both nil if the entity is absent.
func entityVector(publisher ids.EntityID) data.Value {
	if publisher.IsNil() {
		return data.NewVector(data.None(), data.None())
	}
	return data.NewVector(data.String(string(publisher.Endpoint)), data.String(string(publisher.Object)))
}

// expiryValue encodes the optional<expiry> slot as a timespan counted
// from now to the absolute deadline the backend tracks, per spec
// §4.5's "one slot, the timespan value or nil".
func expiryValue(expiry *time.Time) data.Value {
	if expiry == nil {
		return data.None()
	}
	return data.Timespan(time.Until(*expiry))
}

// Insert builds the ["insert", store_name, key, value, optional<expiry>,
// publisher_entity_id] vector (spec §4.5 table).
func Insert(storeName string, key, value data.Value, expiry *time.Time, publisher ids.EntityID) data.Value {
	return data.NewVector(
		data.Enum("insert"),
		data.String(storeName),
		key,
		value,
		expiryValue(expiry),
		entityVector(publisher),
	)
}

// Update builds the ["update", store_name, key, old_value, new_value,
// optional<expiry>, publisher_entity_id] vector.
func Update(storeName string, key, oldValue, newValue data.Value, expiry *time.Time, publisher ids.EntityID) data.Value {
	return data.NewVector(
		data.Enum("update"),
		data.String(storeName),
		key,
		oldValue,
		newValue,
		expiryValue(expiry),
		entityVector(publisher),
	)
}

// Erase builds the ["erase", store_name, key, publisher_entity_id] vector.
func Erase(storeName string, key data.Value, publisher ids.EntityID) data.Value {
	return data.NewVector(
		data.Enum("erase"),
		data.String(storeName),
		key,
		entityVector(publisher),
	)
}

// Expire builds the ["expire", store_name, key, publisher_entity_id] vector.
func Expire(storeName string, key data.Value, publisher ids.EntityID) data.Value {
	return data.NewVector(
		data.Enum("expire"),
		data.String(storeName),
		key,
		entityVector(publisher),
	)
}

// MutationFor picks Insert vs Update per spec §4.5: "the actor consults
// the backend's exists immediately before applying the write".
func MutationFor(existedBefore bool, storeName string, key, oldValue, newValue data.Value, expiry *time.Time, publisher ids.EntityID) data.Value {
	if existedBefore {
		return Update(storeName, key, oldValue, newValue, expiry, publisher)
	}
	return Insert(storeName, key, newValue, expiry, publisher)
}
