package store

import (
	"bytes"
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

// Index is the typed view over one of the multi-value reverse-index
// tables (`cell_node`, `node_way`, `node_relation`, `way_relation`,
// `relation_relation`). Each row is a concatenated (k1, k2) key with an
// empty value; a pair occurs at most once (spec §4.A).
type Index struct {
	b *bolt.Bucket
}

func indexKey(k1, k2 int64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], uint64(k1))
	binary.BigEndian.PutUint64(key[8:16], uint64(k2))
	return key
}

func indexPrefix(k1 int64) []byte {
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, uint64(k1))
	return prefix
}

// Put records that k2 is associated with k1. Idempotent.
func (idx *Index) Put(k1, k2 int64) error {
	return idx.b.Put(indexKey(k1, k2), nil)
}

// Del removes the (k1, k2) association, if present.
func (idx *Index) Del(k1, k2 int64) error {
	return idx.b.Delete(indexKey(k1, k2))
}

// Iterate returns every k2 associated with k1, in ascending order.
func (idx *Index) Iterate(k1 int64) ([]int64, error) {
	prefix := indexPrefix(k1)
	var out []int64
	c := idx.b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if len(k) != 16 {
			continue
		}
		out = append(out, int64(binary.BigEndian.Uint64(k[8:16])))
	}
	return out, nil
}
