// Package diff implements the augmented-diff constructor: the
// DiffHandler that reconstructs old/new entity snapshots with backfilled
// geometry (spec §4.F), the RelationResolver that pre-reads relation
// definitions (§4.G), and the DiffEmitter that serializes the result
// (§4.H). It is grounded in original_source's OnrampUpdateHandler, with
// the EntityBuffer translated to pkg/buffer.Arena and capnp reads
// translated to pkg/codec + pkg/store.
package diff

import (
	"github.com/cuemby/osmaug/pkg/buffer"
	"github.com/cuemby/osmaug/pkg/codec"
	"github.com/cuemby/osmaug/pkg/store"
	"github.com/cuemby/osmaug/pkg/types"
)

// Action is one of the three augmented-diff action kinds.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Entry is the (action, new, old) triple the spec keeps per touched
// entity id (spec §4.F).
type Entry struct {
	Action Action
	New    buffer.Offset
	Old    buffer.Offset
	HasOld bool
}

// Handler drives the second pass over the change stream (spec §4.F). It
// implements osc.EventSink.
type Handler struct {
	txn   *store.Txn
	arena *buffer.Arena

	Nodes     map[int64]Entry
	Ways      map[int64]Entry
	Relations map[int64]Entry

	newRelationMemberOffsets map[int64]map[int64]buffer.Offset
	oldRelationMemberOffsets map[int64]map[int64]buffer.Offset
}

// New returns a Handler reading pre-images through txn, which must be a
// read-only transaction spanning the whole diff pass (spec §5).
func New(txn *store.Txn, arena *buffer.Arena) *Handler {
	return &Handler{
		txn:                      txn,
		arena:                    arena,
		Nodes:                    make(map[int64]Entry),
		Ways:                     make(map[int64]Entry),
		Relations:                make(map[int64]Entry),
		newRelationMemberOffsets: make(map[int64]map[int64]buffer.Offset),
		oldRelationMemberOffsets: make(map[int64]map[int64]buffer.Offset),
	}
}

// Arena returns the backing arena, for the emitter.
func (h *Handler) Arena() *buffer.Arena { return h.arena }

// OnNode classifies a node event and records its diff entry.
func (h *Handler) OnNode(n *types.Node) {
	_, hadPrev := h.txn.Locations().Get(n.ID)

	newOff := h.arena.AppendNode(*n)

	switch {
	case !n.Visible:
		oldOff := h.synthesizeOldNode(n.ID)
		h.Nodes[n.ID] = Entry{Action: ActionDelete, New: newOff, Old: oldOff, HasOld: true}
	case hadPrev:
		oldOff := h.synthesizeOldNode(n.ID)
		h.Nodes[n.ID] = Entry{Action: ActionModify, New: newOff, Old: oldOff, HasOld: true}
	default:
		h.Nodes[n.ID] = Entry{Action: ActionCreate, New: newOff}
	}
}

// synthesizeOldNode builds a minimal old-image node (id + location only,
// spec §4.F / §9 "Old-image fidelity for nodes") from the pre-change
// store.
func (h *Handler) synthesizeOldNode(id int64) buffer.Offset {
	old := types.Node{ID: id, Visible: true}
	if loc, ok := h.txn.Locations().Get(id); ok {
		old.HasLocation = true
		old.LatE7 = loc.LatE7
		old.LonE7 = loc.LonE7
	}
	return h.arena.AppendNode(old)
}

// backfillWayNode resolves ref's coordinate from the pre-change store
// snapshot when the change stream didn't decorate it. Used for old-way
// reconstruction, which must never see this pass's own edits.
func (h *Handler) backfillWayNode(ref types.NodeRef) types.NodeRef {
	if ref.HasLocation {
		return ref
	}
	if loc, ok := h.txn.Locations().Get(ref.Ref); ok {
		ref.HasLocation = true
		ref.LatE7 = loc.LatE7
		ref.LonE7 = loc.LonE7
	}
	return ref
}

// backfillNewWayNode resolves ref's coordinate for a way's *new* image
// (spec §4.F: "the change stream only decorates changed nodes with
// coordinates"). A node touched earlier in this same change file is
// resolved from the in-pass buffer first, since the store hasn't been
// mutated yet during the read-only diff pass and would otherwise return
// stale geometry; only a node this pass never saw falls back to the
// store. Mirrors resolveMemberOffset's h.Nodes-first lookup.
func (h *Handler) backfillNewWayNode(ref types.NodeRef) types.NodeRef {
	if ref.HasLocation {
		return ref
	}
	if e, ok := h.Nodes[ref.Ref]; ok {
		node := h.arena.Node(e.New)
		if node.HasLocation {
			ref.HasLocation = true
			ref.LatE7 = node.LatE7
			ref.LonE7 = node.LonE7
		}
		return ref
	}
	return h.backfillWayNode(ref)
}

// OnWay classifies a way event, backfills its node coordinates, and
// records its diff entry.
func (h *Handler) OnWay(w *types.Way) {
	_, hadPrev := h.txn.Elements(store.TableWays).Get(w.ID)

	backfilled := *w
	if len(w.Nodes) > 0 {
		backfilled.Nodes = make([]types.NodeRef, len(w.Nodes))
		for i, ref := range w.Nodes {
			backfilled.Nodes[i] = h.backfillNewWayNode(ref)
		}
	}
	newOff := h.arena.AppendWay(backfilled)

	switch {
	case !w.Visible:
		oldOff := h.synthesizeOldWay(w.ID)
		h.Ways[w.ID] = Entry{Action: ActionDelete, New: newOff, Old: oldOff, HasOld: true}
	case hadPrev:
		oldOff := h.synthesizeOldWay(w.ID)
		h.Ways[w.ID] = Entry{Action: ActionModify, New: newOff, Old: oldOff, HasOld: true}
	default:
		h.Ways[w.ID] = Entry{Action: ActionCreate, New: newOff}
	}
}

// synthesizeOldWay recovers the old node-id list from the pre-change
// store and resolves each node's current location (spec §4.F). Old ways
// carry only id and geometry, no tags or metadata, matching the old-node
// minimalism the original applies uniformly across entity kinds.
func (h *Handler) synthesizeOldWay(id int64) buffer.Offset {
	old := types.Way{ID: id, Visible: true}
	if raw, ok := h.txn.Elements(store.TableWays).Get(id); ok {
		if prev, err := codec.DecodeWay(id, raw); err == nil {
			old.Nodes = make([]types.NodeRef, len(prev.Nodes))
			for i, ref := range prev.Nodes {
				old.Nodes[i] = h.backfillWayNode(ref)
			}
		}
	}
	return h.arena.AppendWay(old)
}

// resolveMemberOffset returns the buffer offset for a node or way member: the
// entity's "new" offset if it was itself touched by this change file,
// otherwise a fresh record synthesized from the store (spec §4.F).
func (h *Handler) resolveMemberOffset(kind types.MemberKind, ref int64) (buffer.Offset, bool) {
	switch kind {
	case types.MemberNode:
		if e, ok := h.Nodes[ref]; ok {
			return e.New, true
		}
		return h.synthesizeOldNode(ref), true
	case types.MemberWay:
		if e, ok := h.Ways[ref]; ok {
			return e.New, true
		}
		return h.synthesizeOldWay(ref), true
	default:
		// Relation-of-relation membership is recorded but not resolved
		// transitively (spec §9 "Cyclic references").
		return buffer.NoOffset, false
	}
}

// OnRelation classifies a relation event, resolves member offsets, and
// records its diff entry.
func (h *Handler) OnRelation(rel *types.Relation) {
	_, hadPrev := h.txn.Elements(store.TableRelations).Get(rel.ID)

	newOff := h.arena.AppendRelation(*rel)
	newOffsets := make(map[int64]buffer.Offset, len(rel.Members))
	for _, m := range rel.Members {
		if off, ok := h.resolveMemberOffset(m.Kind, m.Ref); ok {
			newOffsets[m.Ref] = off
		}
	}
	h.newRelationMemberOffsets[rel.ID] = newOffsets

	switch {
	case !rel.Visible:
		oldOff := h.synthesizeOldRelation(rel.ID)
		h.Relations[rel.ID] = Entry{Action: ActionDelete, New: newOff, Old: oldOff, HasOld: true}
	case hadPrev:
		oldOff := h.synthesizeOldRelation(rel.ID)
		h.Relations[rel.ID] = Entry{Action: ActionModify, New: newOff, Old: oldOff, HasOld: true}
	default:
		h.Relations[rel.ID] = Entry{Action: ActionCreate, New: newOff}
	}
}

// synthesizeOldRelation rebuilds a relation's pre-image from the store
// and resolves each of its node/way members against the same pre-change
// snapshot (spec §4.F).
func (h *Handler) synthesizeOldRelation(id int64) buffer.Offset {
	old := types.Relation{ID: id, Visible: true}
	oldOffsets := make(map[int64]buffer.Offset)
	if raw, ok := h.txn.Elements(store.TableRelations).Get(id); ok {
		if prev, err := codec.DecodeRelation(id, raw); err == nil {
			old.Members = prev.Members
			for _, m := range prev.Members {
				switch m.Kind {
				case types.MemberNode:
					oldOffsets[m.Ref] = h.synthesizeOldNode(m.Ref)
				case types.MemberWay:
					oldOffsets[m.Ref] = h.synthesizeOldWay(m.Ref)
				}
			}
		}
	}
	h.oldRelationMemberOffsets[id] = oldOffsets
	return h.arena.AppendRelation(old)
}

// NewRelationMemberOffsets returns the node/way member offsets recorded
// for relation id's new image.
func (h *Handler) NewRelationMemberOffsets(id int64) map[int64]buffer.Offset {
	return h.newRelationMemberOffsets[id]
}

// OldRelationMemberOffsets returns the node/way member offsets recorded
// for relation id's old image.
func (h *Handler) OldRelationMemberOffsets(id int64) map[int64]buffer.Offset {
	return h.oldRelationMemberOffsets[id]
}
