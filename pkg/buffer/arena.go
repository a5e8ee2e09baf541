// Package buffer implements the EntityBuffer arena (spec §4.E): an
// append-only store of reconstructed entity records addressed by stable
// offsets that survive further appends. A diff pass holds (action,
// new_offset, old_offset) triples cheaply instead of copying records
// around; the arena is discarded wholesale once the diff has been
// emitted.
package buffer

import "github.com/cuemby/osmaug/pkg/types"

// Offset addresses one record in an Arena's node, way, or relation slice.
// It stays valid for the Arena's whole lifetime: entries are only ever
// appended, never reordered or removed.
type Offset int

// NoOffset is the Offset value used to mean "no record" (an entity has
// no old image, or a member could not be resolved). It is -1, not the
// zero value, since 0 is the offset of the first appended record.
const NoOffset Offset = -1

// Arena holds the reconstructed old/new entity records for one diff pass.
// Each logical kind gets its own growable slice; records are appended by
// value and referenced afterward purely by their Offset, never by
// pointer, so callers are safe across arbitrary further Append calls.
type Arena struct {
	nodes     []types.Node
	ways      []types.Way
	relations []types.Relation
}

// New returns an empty Arena with room for n records of each kind
// pre-reserved, avoiding reallocation churn for the common case.
func New(n int) *Arena {
	return &Arena{
		nodes:     make([]types.Node, 0, n),
		ways:      make([]types.Way, 0, n),
		relations: make([]types.Relation, 0, n),
	}
}

// AppendNode stores n and returns its stable offset.
func (a *Arena) AppendNode(n types.Node) Offset {
	a.nodes = append(a.nodes, n)
	return Offset(len(a.nodes) - 1)
}

// Node returns the record at off. off must have come from AppendNode on
// this Arena.
func (a *Arena) Node(off Offset) *types.Node {
	return &a.nodes[off]
}

// AppendWay stores w and returns its stable offset.
func (a *Arena) AppendWay(w types.Way) Offset {
	a.ways = append(a.ways, w)
	return Offset(len(a.ways) - 1)
}

// Way returns the record at off.
func (a *Arena) Way(off Offset) *types.Way {
	return &a.ways[off]
}

// AppendRelation stores r and returns its stable offset.
func (a *Arena) AppendRelation(r types.Relation) Offset {
	a.relations = append(a.relations, r)
	return Offset(len(a.relations) - 1)
}

// Relation returns the record at off.
func (a *Arena) Relation(off Offset) *types.Relation {
	return &a.relations[off]
}
