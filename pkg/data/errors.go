package data

import "errors"

// ErrTypeClash is returned by Add/Subtract when delta is not compatible
// with the target's type (spec §4.1). Callers at the backend layer map
// this onto brokererr.KindTypeClash.
var ErrTypeClash = errors.New("data: type clash")

// ErrNoSuchKey is returned by Subtract/IndexInto for lookups/removals
// against a table index that isn't bound.
var ErrNoSuchKey = errors.New("data: no such key")
