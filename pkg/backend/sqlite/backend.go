// Package sqlite implements the persistent Backend variant spec §4.2
// names as the example persistent backend, stored as
// entries(key_blob, value_blob, expiry_nullable) per spec §6
// "Persisted state layout".
//
// Grounded on the internal/store package pattern found in other
// production repos using database/sql + github.com/mattn/go-sqlite3
// (WAL-mode pragmas, single-writer connection pool,
// transaction-per-mutation durability), adapted from an event-log
// schema to the single `entries` table needed here.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nimbuskv/broker/pkg/backend"
	"github.com/nimbuskv/broker/pkg/brokererr"
	"github.com/nimbuskv/broker/pkg/data"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key_blob   BLOB PRIMARY KEY,
	value_blob BLOB NOT NULL,
	expiry_unix_nano INTEGER
);
`

// Backend is the SQLite-backed persistent Backend.
type Backend struct {
	db *sql.DB
	// failed latches after a constructor-time failure: every subsequent
	// call short-circuits to backend_failure (spec §4.2 "the backend
	// remains in a degenerate state").
	failed bool
}

// Open creates or opens a SQLite database at path and applies the
// schema and durability pragmas. A constructor failure returns
// init_failed and a Backend that fails every subsequent call.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return &Backend{failed: true}, brokererr.Newf(brokererr.KindInitFailed, "open sqlite: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return &Backend{failed: true}, brokererr.Newf(brokererr.KindInitFailed, "ping sqlite: %v", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return &Backend{failed: true}, brokererr.Newf(brokererr.KindInitFailed, "apply pragma %q: %v", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return &Backend{failed: true}, brokererr.Newf(brokererr.KindInitFailed, "apply schema: %v", err)
	}

	return &Backend{db: db}, nil
}

func (b *Backend) guard() error {
	if b.failed || b.db == nil {
		return brokererr.New(brokererr.KindBackendFailure)
	}
	return nil
}

func expiryColumn(expiry *time.Time) any {
	if expiry == nil {
		return nil
	}
	return expiry.UnixNano()
}

func (b *Backend) Put(ctx context.Context, key, value data.Value, expiry *time.Time) error {
	if err := b.guard(); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO entries (key_blob, value_blob, expiry_unix_nano)
		VALUES (?, ?, ?)
		ON CONFLICT(key_blob) DO UPDATE SET value_blob=excluded.value_blob, expiry_unix_nano=excluded.expiry_unix_nano
	`, data.Encode(key), data.Encode(value), expiryColumn(expiry))
	if err != nil {
		return brokererr.Newf(brokererr.KindBackendFailure, "put: %v", err)
	}
	return nil
}

func (b *Backend) load(ctx context.Context, key data.Value) (data.Value, *time.Time, bool, error) {
	row := b.db.QueryRowContext(ctx, `SELECT value_blob, expiry_unix_nano FROM entries WHERE key_blob = ?`, data.Encode(key))
	var valueBlob []byte
	var expiryNano sql.NullInt64
	if err := row.Scan(&valueBlob, &expiryNano); err != nil {
		if err == sql.ErrNoRows {
			return data.Value{}, nil, false, nil
		}
		return data.Value{}, nil, false, brokererr.Newf(brokererr.KindBackendFailure, "load: %v", err)
	}
	val, err := data.Decode(valueBlob)
	if err != nil {
		return data.Value{}, nil, false, brokererr.Newf(brokererr.KindBackendFailure, "decode value: %v", err)
	}
	var expiry *time.Time
	if expiryNano.Valid {
		t := time.Unix(0, expiryNano.Int64).UTC()
		expiry = &t
	}
	return val, expiry, true, nil
}

func (b *Backend) Add(ctx context.Context, key, delta data.Value, initType data.Kind, expiry *time.Time) (data.Value, error) {
	if err := b.guard(); err != nil {
		return data.Value{}, err
	}
	existing, oldExpiry, ok, err := b.load(ctx, key)
	if err != nil {
		return data.Value{}, err
	}
	var target *data.Value
	if ok {
		target = &existing
	}

	newVal, addErr := data.Add(target, delta, initType)
	if addErr != nil {
		return data.Value{}, brokererr.New(brokererr.KindTypeClash)
	}

	newExpiry := expiry
	if newExpiry == nil {
		newExpiry = oldExpiry
	}
	if err := b.Put(ctx, key, newVal, newExpiry); err != nil {
		return data.Value{}, err
	}
	return newVal, nil
}

func (b *Backend) Subtract(ctx context.Context, key, delta data.Value, expiry *time.Time) (data.Value, error) {
	if err := b.guard(); err != nil {
		return data.Value{}, err
	}
	existing, oldExpiry, ok, err := b.load(ctx, key)
	if err != nil {
		return data.Value{}, err
	}
	if !ok {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}

	newVal, subErr := data.Subtract(existing, delta)
	if subErr == data.ErrNoSuchKey {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}
	if subErr != nil {
		return data.Value{}, brokererr.New(brokererr.KindTypeClash)
	}

	newExpiry := expiry
	if newExpiry == nil {
		newExpiry = oldExpiry
	}
	if err := b.Put(ctx, key, newVal, newExpiry); err != nil {
		return data.Value{}, err
	}
	return newVal, nil
}

func (b *Backend) Erase(ctx context.Context, key data.Value) error {
	if err := b.guard(); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM entries WHERE key_blob = ?`, data.Encode(key)); err != nil {
		return brokererr.Newf(brokererr.KindBackendFailure, "erase: %v", err)
	}
	return nil
}

func (b *Backend) Clear(ctx context.Context) error {
	if err := b.guard(); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return brokererr.Newf(brokererr.KindBackendFailure, "clear: %v", err)
	}
	return nil
}

func (b *Backend) Expire(ctx context.Context, key data.Value, now time.Time) (bool, error) {
	if err := b.guard(); err != nil {
		return false, err
	}
	res, err := b.db.ExecContext(ctx, `
		DELETE FROM entries WHERE key_blob = ? AND expiry_unix_nano IS NOT NULL AND expiry_unix_nano <= ?
	`, data.Encode(key), now.UnixNano())
	if err != nil {
		return false, brokererr.Newf(brokererr.KindBackendFailure, "expire: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, brokererr.Newf(brokererr.KindBackendFailure, "expire rows affected: %v", err)
	}
	return n > 0, nil
}

func (b *Backend) Get(ctx context.Context, key data.Value) (data.Value, error) {
	if err := b.guard(); err != nil {
		return data.Value{}, err
	}
	val, _, ok, err := b.load(ctx, key)
	if err != nil {
		return data.Value{}, err
	}
	if !ok {
		return data.Value{}, brokererr.New(brokererr.KindNoSuchKey)
	}
	return val, nil
}

func (b *Backend) Exists(ctx context.Context, key data.Value) (bool, error) {
	if err := b.guard(); err != nil {
		return false, err
	}
	_, _, ok, err := b.load(ctx, key)
	return ok, err
}

func (b *Backend) Size(ctx context.Context) (uint64, error) {
	if err := b.guard(); err != nil {
		return 0, err
	}
	var n uint64
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, brokererr.Newf(brokererr.KindBackendFailure, "size: %v", err)
	}
	return n, nil
}

func (b *Backend) Keys(ctx context.Context) (data.Value, error) {
	if err := b.guard(); err != nil {
		return data.Value{}, err
	}
	rows, err := b.db.QueryContext(ctx, `SELECT key_blob FROM entries`)
	if err != nil {
		return data.Value{}, brokererr.Newf(brokererr.KindBackendFailure, "keys: %v", err)
	}
	defer rows.Close()

	var keys []data.Value
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return data.Value{}, brokererr.Newf(brokererr.KindBackendFailure, "keys scan: %v", err)
		}
		k, err := data.Decode(blob)
		if err != nil {
			return data.Value{}, brokererr.Newf(brokererr.KindBackendFailure, "keys decode: %v", err)
		}
		keys = append(keys, k)
	}
	return data.NewSet(keys...), nil
}

func (b *Backend) Snapshot(ctx context.Context) (backend.Snapshot, error) {
	if err := b.guard(); err != nil {
		return backend.Snapshot{}, err
	}
	rows, err := b.db.QueryContext(ctx, `SELECT key_blob, value_blob, expiry_unix_nano FROM entries`)
	if err != nil {
		return backend.Snapshot{}, brokererr.Newf(brokererr.KindBackendFailure, "snapshot: %v", err)
	}
	defer rows.Close()

	var out backend.Snapshot
	for rows.Next() {
		var keyBlob, valueBlob []byte
		var expiryNano sql.NullInt64
		if err := rows.Scan(&keyBlob, &valueBlob, &expiryNano); err != nil {
			return backend.Snapshot{}, brokererr.Newf(brokererr.KindBackendFailure, "snapshot scan: %v", err)
		}
		key, err := data.Decode(keyBlob)
		if err != nil {
			return backend.Snapshot{}, brokererr.Newf(brokererr.KindBackendFailure, "snapshot decode key: %v", err)
		}
		val, err := data.Decode(valueBlob)
		if err != nil {
			return backend.Snapshot{}, brokererr.Newf(brokererr.KindBackendFailure, "snapshot decode value: %v", err)
		}
		var expiry *time.Time
		if expiryNano.Valid {
			t := time.Unix(0, expiryNano.Int64).UTC()
			expiry = &t
		}
		out.Entries = append(out.Entries, backend.Entry{Key: key, Value: val, Expiry: expiry})
	}
	return out, nil
}

func (b *Backend) Expiries(ctx context.Context) ([]backend.KeyExpiry, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT key_blob, expiry_unix_nano FROM entries
		WHERE expiry_unix_nano IS NOT NULL
		ORDER BY expiry_unix_nano ASC
	`)
	if err != nil {
		return nil, brokererr.Newf(brokererr.KindBackendFailure, "expiries: %v", err)
	}
	defer rows.Close()

	var out []backend.KeyExpiry
	for rows.Next() {
		var keyBlob []byte
		var expiryNano int64
		if err := rows.Scan(&keyBlob, &expiryNano); err != nil {
			return nil, brokererr.Newf(brokererr.KindBackendFailure, "expiries scan: %v", err)
		}
		key, err := data.Decode(keyBlob)
		if err != nil {
			return nil, brokererr.Newf(brokererr.KindBackendFailure, "expiries decode: %v", err)
		}
		out = append(out, backend.KeyExpiry{Key: key, Expiry: time.Unix(0, expiryNano).UTC()})
	}
	return out, nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("sqlite close: %w", err)
	}
	return nil
}
