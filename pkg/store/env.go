package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Env is the embedded KV environment osmaug persists its mirror of the OSM
// dataset in (spec §4.A). It wraps a single bbolt database file; buckets
// are bbolt's named sub-maps.
type Env struct {
	db       *bolt.DB
	path     string
	writable bool
}

// Open creates or opens the environment at path. writable mirrors the
// LMDB/MDBX-style explicit read-only/read-write open flag spec §4.A calls
// for: when false, the file is opened with bbolt's ReadOnly option, which
// takes a shared file lock; opening waits (up to the 5s timeout) while a
// writable Env holds the file's exclusive lock. When true, the ten tables
// of spec §3 are created if they don't already exist.
func Open(path string, writable bool) (*Env, error) {
	opts := &bolt.Options{Timeout: 5 * time.Second}
	if !writable {
		opts.ReadOnly = true
	}

	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	env := &Env{db: db, path: path, writable: writable}

	if writable {
		if err := db.Update(func(tx *bolt.Tx) error {
			for _, name := range allBuckets {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("create bucket %s: %w", name, err)
				}
			}
			return nil
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: initialize buckets: %w", err)
		}
	}

	return env, nil
}

// Close releases the environment's file handle.
func (e *Env) Close() error {
	return e.db.Close()
}

// Begin starts a transaction. Read-only transactions observe a consistent
// MVCC snapshot and may be opened concurrently with a writer without ever
// seeing its uncommitted data (spec §4.A).
func (e *Env) Begin(writable bool) (*Txn, error) {
	tx, err := e.db.Begin(writable)
	if err != nil {
		return nil, fmt.Errorf("store: begin txn: %w", err)
	}
	return &Txn{tx: tx, env: e, writable: writable}, nil
}
