package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
)

func openTemp(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPutGet(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()

	if err := b.Put(ctx, data.String("a"), data.Int(1), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := b.Get(ctx, data.String("a"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(data.Int(1)) {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestPutOverwrite(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()

	_ = b.Put(ctx, data.String("a"), data.Int(1), nil)
	if err := b.Put(ctx, data.String("a"), data.Int(2), nil); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := b.Get(ctx, data.String("a"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(data.Int(2)) {
		t.Fatalf("got %v, want 2", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	b := openTemp(t)
	_, err := b.Get(context.Background(), data.String("missing"))
	berr, ok := err.(*brokererr.Error)
	if !ok || berr.Kind != brokererr.KindNoSuchKey {
		t.Fatalf("expected KindNoSuchKey, got %v", err)
	}
}

func TestAdd_PreservesExpiryWhenNotProvided(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if _, err := b.Add(ctx, data.String("a"), data.Count(1), data.KindCount, &exp); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := b.Add(ctx, data.String("a"), data.Count(1), data.KindCount, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	expiries, err := b.Expiries(ctx)
	if err != nil {
		t.Fatalf("Expiries: %v", err)
	}
	if len(expiries) != 1 {
		t.Fatalf("expected 1 expiring entry, got %d", len(expiries))
	}
	if expiries[0].Expiry.UnixNano() != exp.UnixNano() {
		t.Fatalf("expiry was not preserved: got %v want %v", expiries[0].Expiry, exp)
	}
}

func TestAdd_RefreshesExpiryWhenProvided(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	first := time.Now().Add(time.Hour)
	second := time.Now().Add(2 * time.Hour)

	if _, err := b.Add(ctx, data.String("a"), data.Count(1), data.KindCount, &first); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := b.Add(ctx, data.String("a"), data.Count(1), data.KindCount, &second); err != nil {
		t.Fatalf("Add: %v", err)
	}

	expiries, err := b.Expiries(ctx)
	if err != nil {
		t.Fatalf("Expiries: %v", err)
	}
	if len(expiries) != 1 || expiries[0].Expiry.UnixNano() != second.UnixNano() {
		t.Fatalf("expected refreshed expiry %v, got %+v", second, expiries)
	}
}

func TestExpireRemovesExactlyOnce(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	exp := time.Now().Add(50 * time.Millisecond)

	if err := b.Put(ctx, data.String("t"), data.String("x"), &exp); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := b.Expire(ctx, data.String("t"), time.Now())
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if removed {
		t.Fatal("should not have expired yet")
	}

	removed, err = b.Expire(ctx, data.String("t"), exp.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if !removed {
		t.Fatal("expected removal past expiry")
	}

	removed, err = b.Expire(ctx, data.String("t"), exp.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if removed {
		t.Fatal("expected idempotent no-op on second expire")
	}
}

func TestSubtractMissingKey(t *testing.T) {
	b := openTemp(t)
	_, err := b.Subtract(context.Background(), data.String("missing"), data.Count(1), nil)
	berr, ok := err.(*brokererr.Error)
	if !ok || berr.Kind != brokererr.KindNoSuchKey {
		t.Fatalf("expected KindNoSuchKey, got %v", err)
	}
}

func TestClear(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	_ = b.Put(ctx, data.String("a"), data.Int(1), nil)
	_ = b.Put(ctx, data.String("b"), data.Int(2), nil)

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	size, _ := b.Size(ctx)
	if size != 0 {
		t.Fatalf("expected empty backend, got size=%d", size)
	}
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = b.Put(ctx, data.String("a"), data.Int(1), nil)
	_ = b.Put(ctx, data.String("b"), data.Int(2), nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries to survive reopen, got %d", len(snap.Entries))
	}
}

func TestBackendFailureAfterInitFailure(t *testing.T) {
	b := &Backend{failed: true}
	if _, err := b.Get(context.Background(), data.String("a")); err == nil {
		t.Fatal("expected backend_failure after latched init failure")
	} else if berr, ok := err.(*brokererr.Error); !ok || berr.Kind != brokererr.KindBackendFailure {
		t.Fatalf("expected KindBackendFailure, got %v", err)
	}
}
