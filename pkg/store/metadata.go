package store

import bolt "go.etcd.io/bbolt"

// Metadata is the typed view over the `metadata` table: small utf-8
// name/value pairs, notably the replication sequence number and
// timestamp (spec §3, §6).
type Metadata struct {
	b *bolt.Bucket
}

// Get returns the value for name and true, or "" and false if unset.
func (m *Metadata) Get(name string) (string, bool) {
	v := m.b.Get([]byte(name))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// Put writes name's value.
func (m *Metadata) Put(name, value string) error {
	return m.b.Put([]byte(name), []byte(value))
}
