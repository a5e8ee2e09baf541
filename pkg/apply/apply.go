// Package apply implements the WriteHandler (spec §4.D): it drives a
// stream of parsed entity events against the Store, maintaining the
// primary tables and the four reverse-reference indexes plus the
// spatial cell index. It is grounded directly in original_source's
// OsmxUpdateHandler, translating its capnp-message writes into calls to
// pkg/codec and pkg/store.
package apply

import (
	"fmt"

	"github.com/cuemby/osmaug/pkg/codec"
	"github.com/cuemby/osmaug/pkg/spatial"
	"github.com/cuemby/osmaug/pkg/store"
	"github.com/cuemby/osmaug/pkg/types"
)

// Handler applies entity events to a writable transaction. It implements
// osc.EventSink.
type Handler struct {
	txn *store.Txn

	Nodes, Ways, Relations    int
	NodesDeleted, WaysDeleted int
	RelationsDeleted          int
}

// New returns a Handler that writes through txn, which must be a
// writable transaction (spec §5: "the WriteHandler pass" opens its own
// read-write transaction).
func New(txn *store.Txn) *Handler {
	return &Handler{txn: txn}
}

// OnNode updates locations, nodes, and cell_node for one node event.
func (h *Handler) OnNode(n *types.Node) {
	locations := h.txn.Locations()
	nodes := h.txn.Elements(store.TableNodes)
	cellNode := h.txn.Index(store.IndexCellNode)

	prev, hadPrev := locations.Get(n.ID)
	var prevCell int64
	if hadPrev {
		prevCell = spatial.CellID(prev.LatE7, prev.LonE7)
	}

	if !n.Visible {
		locations.Del(n.ID)     //nolint:errcheck // bbolt writes inside a txn only fail fatally
		nodes.Del(n.ID)         //nolint:errcheck
		if hadPrev {
			cellNode.Del(prevCell, n.ID) //nolint:errcheck
		}
		h.NodesDeleted++
		return
	}

	newLoc := types.Location{LatE7: n.LatE7, LonE7: n.LonE7, Version: n.Meta.Version}
	locations.Put(n.ID, newLoc) //nolint:errcheck

	if len(n.Tags) > 0 {
		nodes.Put(n.ID, codec.EncodeNode(n)) //nolint:errcheck
	} else {
		nodes.Del(n.ID) //nolint:errcheck
	}

	newCell := spatial.CellID(n.LatE7, n.LonE7)
	switch {
	case !hadPrev:
		cellNode.Put(newCell, n.ID) //nolint:errcheck
	case prevCell != newCell:
		cellNode.Del(prevCell, n.ID) //nolint:errcheck
		cellNode.Put(newCell, n.ID) //nolint:errcheck
	}

	h.Nodes++
}

// OnWay updates ways and node_way for one way event.
func (h *Handler) OnWay(w *types.Way) {
	ways := h.txn.Elements(store.TableWays)
	nodeWay := h.txn.Index(store.IndexNodeWay)

	prevNodes := make(map[int64]struct{})
	if raw, ok := ways.Get(w.ID); ok {
		if prev, err := codec.DecodeWay(w.ID, raw); err == nil {
			for _, ref := range prev.Nodes {
				prevNodes[ref.Ref] = struct{}{}
			}
		}
	}

	newNodes := make(map[int64]struct{}, len(w.Nodes))
	if !w.Visible {
		ways.Del(w.ID) //nolint:errcheck
		for id := range prevNodes {
			nodeWay.Del(id, w.ID) //nolint:errcheck
		}
		h.WaysDeleted++
		return
	}

	for _, ref := range w.Nodes {
		newNodes[ref.Ref] = struct{}{}
	}
	ways.Put(w.ID, codec.EncodeWay(w)) //nolint:errcheck

	for id := range prevNodes {
		if _, still := newNodes[id]; !still {
			nodeWay.Del(id, w.ID) //nolint:errcheck
		}
	}
	for id := range newNodes {
		if _, before := prevNodes[id]; !before {
			nodeWay.Put(id, w.ID) //nolint:errcheck
		}
	}

	h.Ways++
}

// OnRelation updates relations, node_relation, way_relation, and
// relation_relation for one relation event.
func (h *Handler) OnRelation(rel *types.Relation) {
	relations := h.txn.Elements(store.TableRelations)
	nodeRelation := h.txn.Index(store.IndexNodeRelation)
	wayRelation := h.txn.Index(store.IndexWayRelation)
	relRelation := h.txn.Index(store.IndexRelRelation)

	prevNodes := make(map[int64]struct{})
	prevWays := make(map[int64]struct{})
	prevRelations := make(map[int64]struct{})
	if raw, ok := relations.Get(rel.ID); ok {
		if prev, err := codec.DecodeRelation(rel.ID, raw); err == nil {
			for _, m := range prev.Members {
				bucketAdd(m, prevNodes, prevWays, prevRelations)
			}
		}
	}

	newNodes := make(map[int64]struct{})
	newWays := make(map[int64]struct{})
	newRelations := make(map[int64]struct{})

	if !rel.Visible {
		relations.Del(rel.ID) //nolint:errcheck
		for id := range prevNodes {
			nodeRelation.Del(id, rel.ID) //nolint:errcheck
		}
		for id := range prevWays {
			wayRelation.Del(id, rel.ID) //nolint:errcheck
		}
		for id := range prevRelations {
			relRelation.Del(id, rel.ID) //nolint:errcheck
		}
		h.RelationsDeleted++
		return
	}

	for _, m := range rel.Members {
		switch m.Kind {
		case types.MemberNode, types.MemberWay, types.MemberRelation:
			bucketAdd(m, newNodes, newWays, newRelations)
		default:
			// spec §4.D: "Unknown member kinds are rejected." The OSM
			// change reader already maps every member to one of the
			// three kinds, so this is unreachable in practice; skip
			// defensively rather than corrupt the indexes.
		}
	}

	relations.Put(rel.ID, codec.EncodeRelation(rel)) //nolint:errcheck

	diffIndex(nodeRelation, prevNodes, newNodes, rel.ID)
	diffIndex(wayRelation, prevWays, newWays, rel.ID)
	diffIndex(relRelation, prevRelations, newRelations, rel.ID)

	h.Relations++
}

func bucketAdd(m types.Member, nodes, ways, relations map[int64]struct{}) {
	switch m.Kind {
	case types.MemberNode:
		nodes[m.Ref] = struct{}{}
	case types.MemberWay:
		ways[m.Ref] = struct{}{}
	case types.MemberRelation:
		relations[m.Ref] = struct{}{}
	}
}

func diffIndex(idx *store.Index, prev, next map[int64]struct{}, parent int64) {
	for id := range prev {
		if _, still := next[id]; !still {
			idx.Del(id, parent) //nolint:errcheck
		}
	}
	for id := range next {
		if _, before := prev[id]; !before {
			idx.Put(id, parent) //nolint:errcheck
		}
	}
}

// Summary returns a one-line counts string for progress logging.
func (h *Handler) Summary() string {
	return fmt.Sprintf("nodes=%d(-%d) ways=%d(-%d) relations=%d(-%d)",
		h.Nodes, h.NodesDeleted, h.Ways, h.WaysDeleted, h.Relations, h.RelationsDeleted)
}
