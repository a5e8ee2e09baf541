package diff

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/cuemby/osmaug/pkg/buffer"
	"github.com/cuemby/osmaug/pkg/types"
)

// Generator is the value written to the output document's generator
// attribute (spec §6's sample output: `generator="onramp vX.Y.Z"`).
const Generator = "osmaug"

// Emitter serializes a Handler's per-kind maps into the augmented-diff
// XML document (spec §4.H), grounded in OnrampUpdateHandler::to_aug_diff_xml
// with tinyxml2's streaming printer translated into a beevik/etree DOM
// built in memory and written out once.
type Emitter struct {
	h *Handler
}

// NewEmitter returns an Emitter over h's accumulated diff entries.
func NewEmitter(h *Handler) *Emitter {
	return &Emitter{h: h}
}

func fmtDeg(e7 int32) string {
	return strconv.FormatFloat(float64(e7)/1e7, 'f', 7, 64)
}

func fmtTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// WriteTo builds the document and writes it to path atomically: the
// document is serialized to a sibling temporary file and renamed into
// place only once writing succeeds, since a process signal mid-write
// must not leave a corrupt .adiff file where callers expect one (spec
// §5, "Partial .adiff output on disk is not atomically renamed" flagged
// as a gap to close).
func (e *Emitter) WriteTo(path string, validAt time.Time) error {
	doc := e.build(validAt)

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("diff: create %s: %w", tmp, err)
	}
	doc.Indent(2)
	_, writeErr := doc.WriteTo(f)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("diff: write %s: %w", tmp, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("diff: close %s: %w", tmp, closeErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("diff: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

func (e *Emitter) build(validAt time.Time) *etree.Document {
	doc := etree.NewDocument()

	root := doc.CreateElement("xml")
	root.CreateAttr("version", "1.0")
	root.CreateAttr("encoding", "UTF-8")

	osm := root.CreateElement("osm")
	osm.CreateAttr("version", "0.6")
	osm.CreateAttr("generator", Generator)

	meta := osm.CreateElement("meta")
	meta.CreateAttr("osm_base", fmtTimestamp(validAt))

	e.emitNodes(osm)
	e.emitWays(osm)
	e.emitRelations(osm)

	return doc
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Emitter) emitNodes(osm *etree.Element) {
	for _, id := range sortedIDs(e.h.Nodes) {
		entry := e.h.Nodes[id]
		action := osm.CreateElement("action")
		action.CreateAttr("type", string(entry.Action))
		if entry.HasOld {
			old := action.CreateElement("old")
			nodeToXML(old, e.h.arena.Node(entry.Old))
		}
		newEl := action.CreateElement("new")
		nodeToXML(newEl, e.h.arena.Node(entry.New))
	}
}

func (e *Emitter) emitWays(osm *etree.Element) {
	for _, id := range sortedIDs(e.h.Ways) {
		entry := e.h.Ways[id]
		action := osm.CreateElement("action")
		action.CreateAttr("type", string(entry.Action))
		if entry.HasOld {
			old := action.CreateElement("old")
			wayToXML(old, e.h.arena.Way(entry.Old))
		}
		newEl := action.CreateElement("new")
		wayToXML(newEl, e.h.arena.Way(entry.New))
	}
}

func (e *Emitter) emitRelations(osm *etree.Element) {
	for _, id := range sortedIDs(e.h.Relations) {
		entry := e.h.Relations[id]
		action := osm.CreateElement("action")
		action.CreateAttr("type", string(entry.Action))
		if entry.HasOld {
			old := action.CreateElement("old")
			relationToXML(old, e.h.arena.Relation(entry.Old), e.h.OldRelationMemberOffsets(id), e.h.arena)
		}
		newEl := action.CreateElement("new")
		relationToXML(newEl, e.h.arena.Relation(entry.New), e.h.NewRelationMemberOffsets(id), e.h.arena)
	}
}

func commonAttrs(el *etree.Element, m types.Meta) {
	el.CreateAttr("version", strconv.Itoa(int(m.Version)))
	if ts := fmtTimestamp(m.Timestamp); ts != "" {
		el.CreateAttr("timestamp", ts)
	}
	if m.Changeset != 0 {
		el.CreateAttr("changeset", strconv.FormatInt(m.Changeset, 10))
	}
	if m.UID != 0 {
		el.CreateAttr("uid", strconv.Itoa(int(m.UID)))
	}
	if m.User != "" {
		el.CreateAttr("user", m.User)
	}
}

func tagsToXML(el *etree.Element, tags []types.Tag) {
	for _, t := range tags {
		tag := el.CreateElement("tag")
		tag.CreateAttr("k", t.Key)
		tag.CreateAttr("v", t.Value)
	}
}

func nodeToXML(el *etree.Element, n *types.Node) {
	el.CreateAttr("id", strconv.FormatInt(n.ID, 10))
	if !n.Visible {
		el.CreateAttr("visible", "false")
	} else if n.HasLocation {
		el.CreateAttr("lat", fmtDeg(n.LatE7))
		el.CreateAttr("lon", fmtDeg(n.LonE7))
	}
	commonAttrs(el, n.Meta)
	tagsToXML(el, n.Tags)
}

func wayBounds(nodes []types.NodeRef) (types.Bounds, bool) {
	var b types.Bounds
	found := false
	for _, ref := range nodes {
		if !ref.HasLocation {
			continue
		}
		if !found {
			b = types.Bounds{MinLatE7: ref.LatE7, MaxLatE7: ref.LatE7, MinLonE7: ref.LonE7, MaxLonE7: ref.LonE7}
			found = true
			continue
		}
		if ref.LatE7 < b.MinLatE7 {
			b.MinLatE7 = ref.LatE7
		}
		if ref.LatE7 > b.MaxLatE7 {
			b.MaxLatE7 = ref.LatE7
		}
		if ref.LonE7 < b.MinLonE7 {
			b.MinLonE7 = ref.LonE7
		}
		if ref.LonE7 > b.MaxLonE7 {
			b.MaxLonE7 = ref.LonE7
		}
	}
	return b, found
}

func wayToXML(el *etree.Element, w *types.Way) {
	el.CreateAttr("id", strconv.FormatInt(w.ID, 10))
	commonAttrs(el, w.Meta)

	if w.Visible {
		if b, ok := wayBounds(w.Nodes); ok {
			bounds := el.CreateElement("bounds")
			bounds.CreateAttr("minlat", fmtDeg(b.MinLatE7))
			bounds.CreateAttr("minlon", fmtDeg(b.MinLonE7))
			bounds.CreateAttr("maxlat", fmtDeg(b.MaxLatE7))
			bounds.CreateAttr("maxlon", fmtDeg(b.MaxLonE7))
		}
		for _, ref := range w.Nodes {
			nd := el.CreateElement("nd")
			nd.CreateAttr("ref", strconv.FormatInt(ref.Ref, 10))
			if ref.HasLocation {
				nd.CreateAttr("lat", fmtDeg(ref.LatE7))
				nd.CreateAttr("lon", fmtDeg(ref.LonE7))
			}
		}
	} else {
		el.CreateAttr("visible", "false")
	}

	tagsToXML(el, w.Tags)
}

func relationToXML(el *etree.Element, rel *types.Relation, memberOffsets map[int64]buffer.Offset, arena *buffer.Arena) {
	el.CreateAttr("id", strconv.FormatInt(rel.ID, 10))
	commonAttrs(el, rel.Meta)

	// Relation envelopes are left omitted, matching the original's TODO
	// (spec §9, "Relation envelope").
	if rel.Visible {
		for _, m := range rel.Members {
			member := el.CreateElement("member")
			member.CreateAttr("type", m.Kind.String())
			member.CreateAttr("ref", strconv.FormatInt(m.Ref, 10))
			member.CreateAttr("role", m.Role)

			off, ok := memberOffsets[m.Ref]
			if !ok {
				continue
			}
			switch m.Kind {
			case types.MemberNode:
				node := arena.Node(off)
				if node.HasLocation {
					member.CreateAttr("lat", fmtDeg(node.LatE7))
					member.CreateAttr("lon", fmtDeg(node.LonE7))
				}
			case types.MemberWay:
				way := arena.Way(off)
				for _, ref := range way.Nodes {
					nd := member.CreateElement("nd")
					if ref.HasLocation {
						nd.CreateAttr("lat", fmtDeg(ref.LatE7))
						nd.CreateAttr("lon", fmtDeg(ref.LonE7))
					}
				}
			}
		}
	} else {
		el.CreateAttr("visible", "false")
	}

	tagsToXML(el, rel.Tags)
}
