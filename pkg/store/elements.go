package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

// Elements is the typed view over one of the opaque-byte-slice tables
// (`nodes`, `ways`, `relations`): an id keyed to a codec-encoded record
// (spec §4.A).
type Elements struct {
	b *bolt.Bucket
}

func elementKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Get returns the encoded record for id and true, or nil and false if
// absent.
func (e *Elements) Get(id int64) ([]byte, bool) {
	v := e.b.Get(elementKey(id))
	if v == nil {
		return nil, false
	}
	// Bucket.Get's return value is only valid for the life of the
	// transaction; copy it so callers can hold onto it afterward.
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Exists reports whether id has a record.
func (e *Elements) Exists(id int64) bool {
	return e.b.Get(elementKey(id)) != nil
}

// Put writes or overwrites id's encoded record.
func (e *Elements) Put(id int64, encoded []byte) error {
	return e.b.Put(elementKey(id), encoded)
}

// Del removes id's record.
func (e *Elements) Del(id int64) error {
	return e.b.Delete(elementKey(id))
}
