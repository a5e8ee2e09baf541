package store

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound reports an absent key. The typed-view Get methods do not
// return it; they report absence through their boolean result.
var ErrNotFound = errors.New("store: not found")

// Txn wraps a single bbolt transaction. Mode (read-only vs read-write) is
// fixed for the transaction's lifetime except across Renew.
type Txn struct {
	tx       *bolt.Tx
	env      *Env
	writable bool
}

// Commit flushes the transaction atomically across all ten tables. Only
// valid for a read-write Txn.
func (t *Txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Abort discards the transaction, leaving disk state unchanged.
func (t *Txn) Abort() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("store: abort: %w", err)
	}
	return nil
}

// Renew refreshes a read-only transaction's snapshot so it observes the
// latest commit. Spec §4.A requires this when a single Txn handle is
// reused across the diff pass and the write pass; bbolt has no in-place
// renew, so this closes the current snapshot and opens a fresh one.
func (t *Txn) Renew() error {
	if t.writable {
		return errors.New("store: Renew is only valid for a read-only txn")
	}
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("store: renew (close old snapshot): %w", err)
	}
	tx, err := t.env.db.Begin(false)
	if err != nil {
		return fmt.Errorf("store: renew (open new snapshot): %w", err)
	}
	t.tx = tx
	return nil
}

// Locations returns the typed view over the `locations` table.
func (t *Txn) Locations() *Locations {
	return &Locations{b: t.tx.Bucket(bucketLocations)}
}

// Elements returns the typed view over one of the opaque-byte-slice
// tables: `nodes`, `ways`, or `relations`.
func (t *Txn) Elements(name string) *Elements {
	return &Elements{b: t.tx.Bucket([]byte(name))}
}

// Index returns the typed view over one of the multi-value reverse-index
// tables: `cell_node`, `node_way`, `node_relation`, `way_relation`, or
// `relation_relation`.
func (t *Txn) Index(name string) *Index {
	return &Index{b: t.tx.Bucket([]byte(name))}
}

// Metadata returns the typed view over the `metadata` table.
func (t *Txn) Metadata() *Metadata {
	return &Metadata{b: t.tx.Bucket(bucketMetadata)}
}
