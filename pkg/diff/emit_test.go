package diff

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/osmaug/pkg/buffer"
	"github.com/cuemby/osmaug/pkg/types"
)

func TestFmtDegFormatsFixedPoint(t *testing.T) {
	assert.Equal(t, "40.7128000", fmtDeg(407128000))
	assert.Equal(t, "-74.0060000", fmtDeg(-740060000))
}

func TestFmtTimestampZeroIsEmpty(t *testing.T) {
	assert.Equal(t, "", fmtTimestamp(time.Time{}))
}

func TestFmtTimestampFormat(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05Z", fmtTimestamp(ts))
}

func newHandlerForEmit() *Handler {
	arena := buffer.New(4)
	return &Handler{
		arena:                    arena,
		Nodes:                    make(map[int64]Entry),
		Ways:                     make(map[int64]Entry),
		Relations:                make(map[int64]Entry),
		newRelationMemberOffsets: make(map[int64]map[int64]buffer.Offset),
		oldRelationMemberOffsets: make(map[int64]map[int64]buffer.Offset),
	}
}

func TestWriteToProducesWellFormedDocument(t *testing.T) {
	h := newHandlerForEmit()
	off := h.arena.AppendNode(types.Node{ID: 1, Visible: true, HasLocation: true, LatE7: 10, LonE7: 20, Meta: types.Meta{Version: 1}})
	h.Nodes[1] = Entry{Action: ActionCreate, New: off}

	emitter := NewEmitter(h)
	path := filepath.Join(t.TempDir(), "1.adiff.xml")
	require.NoError(t, emitter.WriteTo(path, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `<osm version="0.6" generator="osmaug">`)
	assert.Contains(t, s, `type="create"`)
	assert.Contains(t, s, `id="1"`)
}

func TestWriteToLeavesNoTempFileBehind(t *testing.T) {
	h := newHandlerForEmit()
	emitter := NewEmitter(h)
	dir := t.TempDir()
	path := filepath.Join(dir, "2.adiff.xml")
	require.NoError(t, emitter.WriteTo(path, time.Now().UTC()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2.adiff.xml", entries[0].Name())
}

func TestWriteToFailsOnUnwritableDirectory(t *testing.T) {
	h := newHandlerForEmit()
	emitter := NewEmitter(h)
	err := emitter.WriteTo(filepath.Join(t.TempDir(), "missing-dir", "out.xml"), time.Now())
	assert.Error(t, err)
}

func TestNodeEntryWithOldImageEmitsBothElements(t *testing.T) {
	h := newHandlerForEmit()
	oldOff := h.arena.AppendNode(types.Node{ID: 1, HasLocation: true, LatE7: 1, LonE7: 1})
	newOff := h.arena.AppendNode(types.Node{ID: 1, Visible: true, HasLocation: true, LatE7: 2, LonE7: 2, Meta: types.Meta{Version: 2}})
	h.Nodes[1] = Entry{Action: ActionModify, Old: oldOff, New: newOff, HasOld: true}

	emitter := NewEmitter(h)
	path := filepath.Join(t.TempDir(), "out.xml")
	require.NoError(t, emitter.WriteTo(path, time.Now()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "<old>")
	assert.Contains(t, s, "<new>")
}

func TestWayToXMLOmitsCoordinatelessBounds(t *testing.T) {
	b, ok := wayBounds(nil)
	assert.False(t, ok)
	assert.Zero(t, b)
}

func TestWayBoundsComputesEnvelope(t *testing.T) {
	b, ok := wayBounds([]types.NodeRef{
		{Ref: 1, HasLocation: true, LatE7: 10, LonE7: -10},
		{Ref: 2, HasLocation: true, LatE7: -5, LonE7: 20},
	})
	require.True(t, ok)
	assert.Equal(t, int32(-5), b.MinLatE7)
	assert.Equal(t, int32(10), b.MaxLatE7)
	assert.Equal(t, int32(-10), b.MinLonE7)
	assert.Equal(t, int32(20), b.MaxLonE7)
}
