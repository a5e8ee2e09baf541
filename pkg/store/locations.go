package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/osmaug/pkg/types"
)

// Locations is the typed view over the `locations` table: the hot-path,
// dense, one-record-per-node table spec §3 describes. `locations[id]`
// existing is the definition of "node id is currently visible"
// (invariant 1).
type Locations struct {
	b *bolt.Bucket
}

func locationKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func encodeLocation(loc types.Location) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(loc.LatE7))
	binary.BigEndian.PutUint32(buf[4:8], uint32(loc.LonE7))
	binary.BigEndian.PutUint32(buf[8:12], uint32(loc.Version))
	return buf
}

func decodeLocation(buf []byte) types.Location {
	return types.Location{
		LatE7:   int32(binary.BigEndian.Uint32(buf[0:4])),
		LonE7:   int32(binary.BigEndian.Uint32(buf[4:8])),
		Version: int32(binary.BigEndian.Uint32(buf[8:12])),
	}
}

// Get returns the node's current location and true, or the zero value and
// false if the node has no location (is not currently visible).
func (l *Locations) Get(id int64) (types.Location, bool) {
	v := l.b.Get(locationKey(id))
	if v == nil {
		return types.Location{}, false
	}
	return decodeLocation(v), true
}

// Exists reports whether the node currently has a location.
func (l *Locations) Exists(id int64) bool {
	return l.b.Get(locationKey(id)) != nil
}

// Put writes or overwrites a node's location.
func (l *Locations) Put(id int64, loc types.Location) error {
	return l.b.Put(locationKey(id), encodeLocation(loc))
}

// Del removes a node's location.
func (l *Locations) Del(id int64) error {
	return l.b.Delete(locationKey(id))
}
