// Package memory implements the in-memory backend variant required by
// spec §4.2: a hash map plus an ordered expiry index.
//
// Grounded on pkg/memtable.Memtable, which keeps its
// active table in a github.com/zhangyunhao116/skipmap.FuncMap ordered by
// a caller-supplied comparator. We reuse that exact structure — one
// skipmap for the key index, a second for the expiry index ordered by
// (expiry, key) — since a store actor owns its backend exclusively
// (spec §5), the concurrency skipmap buys isn't load-bearing here, but
// the ordered-scan property Expire/Expiries need is.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/zhangyunhao116/skipmap"

	"github.com/nimbuskv/broker/pkg/backend"
	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
)

type record struct {
	key    data.Value
	value  data.Value
	expiry *time.Time
}

// Backend is the in-memory Backend implementation. Clones always use
// this variant (spec §9 Design Notes: "Clones always use in-memory").
type Backend struct {
	keys    *skipmap.FuncMap[string, *record]
	expiry  *skipmap.FuncMap[string, string] // composite(expiry,key) -> key's canonical form
}

func New() *Backend {
	return &Backend{
		keys: skipmap.NewFunc[string, *record](func(a, b string) bool {
			return a < b
		}),
		expiry: skipmap.NewFunc[string, string](func(a, b string) bool {
			return a < b
		}),
	}
}

func expiryIndexKey(when time.Time, canonicalKey string) string {
	return fmt.Sprintf("%020d|%s", when.UnixNano(), canonicalKey)
}

func (b *Backend) setExpiry(canonicalKey string, old, new *time.Time) {
	if old != nil {
		b.expiry.Delete(expiryIndexKey(*old, canonicalKey))
	}
	if new != nil {
		b.expiry.Store(expiryIndexKey(*new, canonicalKey), canonicalKey)
	}
}

func (b *Backend) Put(_ context.Context, key, value data.Value, expiry *time.Time) error {
	ck := key.CanonicalKey()
	var old *time.Time
	if existing, ok := b.keys.Load(ck); ok {
		old = existing.expiry
	}
	b.keys.Store(ck, &record{key: key, value: value, expiry: expiry})
	b.setExpiry(ck, old, expiry)
	return nil
}

// resolvedExpiry implements refresh-on-provided semantics: an explicit
// expiry replaces any existing one; omitting it (nil) preserves
// whatever the entry already had.
func resolvedExpiry(existing *time.Time, provided *time.Time) *time.Time {
	if provided != nil {
		return provided
	}
	return existing
}

func (b *Backend) Add(_ context.Context, key, delta data.Value, initType data.Kind, expiry *time.Time) (data.Value, error) {
	ck := key.CanonicalKey()
	existing, ok := b.keys.Load(ck)

	var target *data.Value
	var oldExpiry *time.Time
	if ok {
		target = &existing.value
		oldExpiry = existing.expiry
	}

	newVal, err := data.Add(target, delta, initType)
	if err != nil {
		return data.Value{}, brokererr.New(brokererr.KindTypeClash)
	}

	newExpiry := resolvedExpiry(oldExpiry, expiry)
	b.keys.Store(ck, &record{key: key, value: newVal, expiry: newExpiry})
	b.setExpiry(ck, oldExpiry, newExpiry)
	return newVal, nil
}

func (b *Backend) Subtract(_ context.Context, key, delta data.Value, expiry *time.Time) (data.Value, error) {
	ck := key.CanonicalKey()
	existing, ok := b.keys.Load(ck)
	if !ok {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}

	newVal, err := data.Subtract(existing.value, delta)
	if err == data.ErrNoSuchKey {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}
	if err != nil {
		return data.Value{}, brokererr.New(brokererr.KindTypeClash)
	}

	newExpiry := resolvedExpiry(existing.expiry, expiry)
	b.keys.Store(ck, &record{key: key, value: newVal, expiry: newExpiry})
	b.setExpiry(ck, existing.expiry, newExpiry)
	return newVal, nil
}

func (b *Backend) Erase(_ context.Context, key data.Value) error {
	ck := key.CanonicalKey()
	if existing, ok := b.keys.Load(ck); ok {
		b.setExpiry(ck, existing.expiry, nil)
		b.keys.Delete(ck)
	}
	return nil
}

func (b *Backend) Clear(_ context.Context) error {
	b.keys.Range(func(ck string, _ *record) bool {
		b.keys.Delete(ck)
		return true
	})
	b.expiry.Range(func(ek string, _ string) bool {
		b.expiry.Delete(ek)
		return true
	})
	return nil
}

func (b *Backend) Expire(_ context.Context, key data.Value, now time.Time) (bool, error) {
	ck := key.CanonicalKey()
	existing, ok := b.keys.Load(ck)
	if !ok {
		return false, nil
	}
	if existing.expiry == nil || existing.expiry.After(now) {
		return false, nil
	}
	b.setExpiry(ck, existing.expiry, nil)
	b.keys.Delete(ck)
	return true, nil
}

func (b *Backend) Get(_ context.Context, key data.Value) (data.Value, error) {
	existing, ok := b.keys.Load(key.CanonicalKey())
	if !ok {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}
	return existing.value, nil
}

func (b *Backend) Exists(_ context.Context, key data.Value) (bool, error) {
	_, ok := b.keys.Load(key.CanonicalKey())
	return ok, nil
}

func (b *Backend) Size(_ context.Context) (uint64, error) {
	return uint64(b.keys.Len()), nil
}

func (b *Backend) Keys(_ context.Context) (data.Value, error) {
	out := make([]data.Value, 0, b.keys.Len())
	b.keys.Range(func(_ string, r *record) bool {
		out = append(out, r.key)
		return true
	})
	return data.NewSet(out...), nil
}

func (b *Backend) Snapshot(_ context.Context) (backend.Snapshot, error) {
	entries := make([]backend.Entry, 0, b.keys.Len())
	b.keys.Range(func(_ string, r *record) bool {
		entries = append(entries, backend.Entry{Key: r.key, Value: r.value, Expiry: r.expiry})
		return true
	})
	return backend.Snapshot{Entries: entries}, nil
}

func (b *Backend) Expiries(_ context.Context) ([]backend.KeyExpiry, error) {
	out := make([]backend.KeyExpiry, 0)
	b.expiry.Range(func(_ string, ck string) bool {
		if r, ok := b.keys.Load(ck); ok && r.expiry != nil {
			out = append(out, backend.KeyExpiry{Key: r.key, Expiry: *r.expiry})
		}
		return true
	})
	return out, nil
}

func (b *Backend) Close() error { return nil }
