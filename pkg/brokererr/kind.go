// Package brokererr implements the error taxonomy from spec §7: a
// numeric/string kind, a category tag, optional context, and a faithful
// round-trip to a data.Value so errors can cross the event/command wire
// the same way any other store value does.
//
// Adapted from pkg/dberrors (flat sentinel errors,
// "lsmdb: " message prefix) expanded into the richer kind+context shape
// spec §7's Design Note "Error as value" calls for.
package brokererr

// Kind is the taxonomy named in spec §7. Values are the kind names
// verbatim so the wire round-trip (ToData/FromData) needs no separate
// name table.
type Kind string

const (
	KindNone Kind = "none"
	KindUnspecified Kind = "unspecified"

	KindPeerIncompatible              Kind = "peer_incompatible"
	KindPeerInvalid                   Kind = "peer_invalid"
	KindPeerUnavailable               Kind = "peer_unavailable"
	KindPeerDisconnectDuringHandshake Kind = "peer_disconnect_during_handshake"
	KindPeerTimeout                   Kind = "peer_timeout"

	KindMasterExists  Kind = "master_exists"
	KindNoSuchMaster  Kind = "no_such_master"

	KindNoSuchKey   Kind = "no_such_key"
	KindTypeClash   Kind = "type_clash"
	KindInvalidData Kind = "invalid_data"
	KindStaleData   Kind = "stale_data"

	KindRequestTimeout Kind = "request_timeout"

	KindBackendFailure  Kind = "backend_failure"
	KindCannotOpenFile  Kind = "cannot_open_file"
	KindCannotWriteFile Kind = "cannot_write_file"
	KindInitFailed      Kind = "init_failed"

	KindInvalidTopicKey Kind = "invalid_topic_key"
	KindEndOfFile       Kind = "end_of_file"
	KindInvalidTag      Kind = "invalid_tag"
	KindInvalidStatus   Kind = "invalid_status"
)

// Category namespaces a kind the way spec §7 groups the taxonomy table.
func (k Kind) Category() string {
	switch k {
	case KindNone, KindUnspecified:
		return "generic"
	case KindPeerIncompatible, KindPeerInvalid, KindPeerUnavailable,
		KindPeerDisconnectDuringHandshake, KindPeerTimeout:
		return "peer"
	case KindMasterExists, KindNoSuchMaster:
		return "topology"
	case KindNoSuchKey, KindTypeClash, KindInvalidData, KindStaleData:
		return "data"
	case KindRequestTimeout:
		return "timing"
	case KindBackendFailure, KindCannotOpenFile, KindCannotWriteFile, KindInitFailed:
		return "backend"
	case KindInvalidTopicKey, KindEndOfFile, KindInvalidTag, KindInvalidStatus:
		return "protocol"
	default:
		return "generic"
	}
}
