// Package codec serializes nodes, ways, and relations into a compact
// binary record per entity, and deserializes them back (spec §4.B).
//
// Layout, in order:
//
//	header:   version (i32) | timestamp (i64, unix seconds) | changeset (i64) | uid (i32) | user (varint-len string)
//	tags:     count (uvarint) | count * (varint-len key, varint-len value)
//	node:     header, tags                         -- location lives in the `locations` table, not here
//	way:      header, tags, count (uvarint) | count * node id (varint, zigzag)
//	relation: header, tags, count (uvarint) | count * (kind (byte) | ref (varint, zigzag) | varint-len role)
//
// The codec is bit-exact: decode(encode(x)) == x for every supported
// entity, and two encoders given the same entity must produce identical
// bytes.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cuemby/osmaug/pkg/types"
)

// writer accumulates a record into a byte buffer using the varint framing
// described above.
type writer struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (w *writer) int32(v int32)  { binary.Write(&w.buf, binary.BigEndian, v) } //nolint:errcheck // bytes.Buffer.Write never fails
func (w *writer) int64(v int64)  { binary.Write(&w.buf, binary.BigEndian, v) } //nolint:errcheck
func (w *writer) uvarint(v uint64) {
	n := binary.PutUvarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}
func (w *writer) varint(v int64) {
	n := binary.PutVarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}
func (w *writer) str(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) header(m types.Meta) {
	w.int32(m.Version)
	w.int64(m.Timestamp.Unix())
	w.int64(m.Changeset)
	w.int32(m.UID)
	w.str(m.User)
}

func (w *writer) tags(tags []types.Tag) {
	w.uvarint(uint64(len(tags)))
	for _, t := range tags {
		w.str(t.Key)
		w.str(t.Value)
	}
}

// reader consumes a record produced by writer, reporting the first error
// encountered (a truncated or corrupt buffer) rather than panicking.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) int32() int32 {
	if r.err != nil || r.off+4 > len(r.b) {
		r.fail(fmt.Errorf("codec: truncated int32"))
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.b[r.off : r.off+4]))
	r.off += 4
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil || r.off+8 > len(r.b) {
		r.fail(fmt.Errorf("codec: truncated int64"))
		return 0
	}
	v := int64(binary.BigEndian.Uint64(r.b[r.off : r.off+8]))
	r.off += 8
	return v
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.b[r.off:])
	if n <= 0 {
		r.fail(fmt.Errorf("codec: truncated uvarint"))
		return 0
	}
	r.off += n
	return v
}

func (r *reader) varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.b[r.off:])
	if n <= 0 {
		r.fail(fmt.Errorf("codec: truncated varint"))
		return 0
	}
	r.off += n
	return v
}

func (r *reader) str() string {
	n := r.uvarint()
	if r.err != nil {
		return ""
	}
	end := r.off + int(n)
	if end < r.off || end > len(r.b) {
		r.fail(fmt.Errorf("codec: truncated string"))
		return ""
	}
	s := string(r.b[r.off:end])
	r.off = end
	return s
}

func (r *reader) header() types.Meta {
	m := types.Meta{
		Version: r.int32(),
	}
	ts := r.int64()
	m.Timestamp = time.Unix(ts, 0).UTC()
	m.Changeset = r.int64()
	m.UID = r.int32()
	m.User = r.str()
	return m
}

func (r *reader) tags() []types.Tag {
	n := r.uvarint()
	if r.err != nil || n == 0 {
		return nil
	}
	tags := make([]types.Tag, n)
	for i := range tags {
		tags[i].Key = r.str()
		tags[i].Value = r.str()
	}
	return tags
}

// EncodeNode serializes a node's metadata and tags. Location is never
// included; it lives in the `locations` table.
func EncodeNode(n *types.Node) []byte {
	var w writer
	w.header(n.Meta)
	w.tags(n.Tags)
	return w.buf.Bytes()
}

// DecodeNode parses a record produced by EncodeNode into id's metadata and
// tags. Callers supply id and location separately since neither is part of
// this record.
func DecodeNode(id int64, b []byte) (*types.Node, error) {
	r := reader{b: b}
	meta := r.header()
	tags := r.tags()
	if r.err != nil {
		return nil, fmt.Errorf("codec: decode node %d: %w", id, r.err)
	}
	return &types.Node{ID: id, Visible: true, Meta: meta, Tags: tags}, nil
}

// EncodeWay serializes a way's metadata, tags, and ordered node-id list.
func EncodeWay(w0 *types.Way) []byte {
	var w writer
	w.header(w0.Meta)
	w.tags(w0.Tags)
	w.uvarint(uint64(len(w0.Nodes)))
	for _, ref := range w0.Nodes {
		w.varint(ref.Ref)
	}
	return w.buf.Bytes()
}

// DecodeWay parses a record produced by EncodeWay. Node refs carry only
// ids; coordinates are resolved separately from the locations table.
func DecodeWay(id int64, b []byte) (*types.Way, error) {
	r := reader{b: b}
	meta := r.header()
	tags := r.tags()
	n := r.uvarint()
	var nodes []types.NodeRef
	if n > 0 {
		nodes = make([]types.NodeRef, n)
		for i := range nodes {
			nodes[i].Ref = r.varint()
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("codec: decode way %d: %w", id, r.err)
	}
	return &types.Way{ID: id, Visible: true, Meta: meta, Tags: tags, Nodes: nodes}, nil
}

// EncodeRelation serializes a relation's metadata, tags, and ordered
// member list.
func EncodeRelation(rel *types.Relation) []byte {
	var w writer
	w.header(rel.Meta)
	w.tags(rel.Tags)
	w.uvarint(uint64(len(rel.Members)))
	for _, m := range rel.Members {
		w.buf.WriteByte(byte(m.Kind))
		w.varint(m.Ref)
		w.str(m.Role)
	}
	return w.buf.Bytes()
}

// DecodeRelation parses a record produced by EncodeRelation.
func DecodeRelation(id int64, b []byte) (*types.Relation, error) {
	r := reader{b: b}
	meta := r.header()
	tags := r.tags()
	n := r.uvarint()
	var members []types.Member
	if n > 0 {
		members = make([]types.Member, n)
		for i := range members {
			if r.err != nil || r.off >= len(r.b) {
				r.fail(fmt.Errorf("codec: truncated member kind"))
				break
			}
			kind := r.b[r.off]
			r.off++
			members[i].Kind = types.MemberKind(kind)
			members[i].Ref = r.varint()
			members[i].Role = r.str()
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("codec: decode relation %d: %w", id, r.err)
	}
	return &types.Relation{ID: id, Visible: true, Meta: meta, Tags: tags, Members: members}, nil
}
