package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/osmaug/pkg/types"
)

func openTestEnv(t *testing.T) *Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestOpenCreatesAllBuckets(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(false)
	require.NoError(t, err)
	defer txn.Abort() //nolint:errcheck

	// Every typed view must resolve to a real bucket, not a nil one.
	assert.NotNil(t, txn.Locations())
	assert.NotNil(t, txn.Elements(TableNodes))
	assert.NotNil(t, txn.Elements(TableWays))
	assert.NotNil(t, txn.Elements(TableRelations))
	assert.NotNil(t, txn.Index(IndexCellNode))
	assert.NotNil(t, txn.Index(IndexNodeWay))
	assert.NotNil(t, txn.Index(IndexNodeRelation))
	assert.NotNil(t, txn.Index(IndexWayRelation))
	assert.NotNil(t, txn.Index(IndexRelRelation))
	assert.NotNil(t, txn.Metadata())
}

func TestLocationsPutGetDel(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)

	loc := types.Location{LatE7: 407128000, LonE7: -740060000, Version: 2}
	require.NoError(t, txn.Locations().Put(1, loc))

	got, ok := txn.Locations().Get(1)
	require.True(t, ok)
	assert.Equal(t, loc, got)

	assert.True(t, txn.Locations().Exists(1))
	require.NoError(t, txn.Locations().Del(1))
	assert.False(t, txn.Locations().Exists(1))

	_, ok = txn.Locations().Get(1)
	assert.False(t, ok)

	require.NoError(t, txn.Commit())
}

func TestElementsPutGetDel(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)

	nodes := txn.Elements(TableNodes)
	require.NoError(t, nodes.Put(1, []byte("payload")))

	got, ok := nodes.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
	assert.True(t, nodes.Exists(1))

	require.NoError(t, nodes.Del(1))
	assert.False(t, nodes.Exists(1))

	require.NoError(t, txn.Abort())
}

func TestElementsGetReturnsOwnedCopy(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)

	ways := txn.Elements(TableWays)
	require.NoError(t, ways.Put(1, []byte("abc")))

	got, ok := ways.Get(1)
	require.True(t, ok)
	got[0] = 'z'

	got2, ok := ways.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got2, "mutating a returned slice must not corrupt the stored record")

	require.NoError(t, txn.Abort())
}

func TestIndexPutIterateDel(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)

	idx := txn.Index(IndexNodeWay)
	require.NoError(t, idx.Put(1, 100))
	require.NoError(t, idx.Put(1, 200))
	require.NoError(t, idx.Put(2, 300))

	ways, err := idx.Iterate(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, ways)

	require.NoError(t, idx.Del(1, 100))
	ways, err = idx.Iterate(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, ways)

	other, err := idx.Iterate(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{300}, other)

	require.NoError(t, txn.Abort())
}

func TestMetadataPutGet(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)

	meta := txn.Metadata()
	require.NoError(t, meta.Put(MetaSequenceNumber, "123456"))

	v, ok := meta.Get(MetaSequenceNumber)
	require.True(t, ok)
	assert.Equal(t, "123456", v)

	_, ok = meta.Get("unset_key")
	assert.False(t, ok)

	require.NoError(t, txn.Commit())
}

func TestCommitPersistsAcrossTransactions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := Open(path, true)
	require.NoError(t, err)

	txn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Locations().Put(1, types.Location{LatE7: 1, LonE7: 2, Version: 1}))
	require.NoError(t, txn.Commit())

	txn2, err := env.Begin(false)
	require.NoError(t, err)
	loc, ok := txn2.Locations().Get(1)
	require.True(t, ok)
	assert.Equal(t, int32(1), loc.LatE7)
	require.NoError(t, txn2.Abort())
	require.NoError(t, env.Close())
}

func TestAbortDiscardsChanges(t *testing.T) {
	env := openTestEnv(t)

	txn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Locations().Put(1, types.Location{LatE7: 1, LonE7: 2, Version: 1}))
	require.NoError(t, txn.Abort())

	txn2, err := env.Begin(false)
	require.NoError(t, err)
	_, ok := txn2.Locations().Get(1)
	assert.False(t, ok)
	require.NoError(t, txn2.Abort())
}

func TestRenewOnlyValidForReadOnlyTxn(t *testing.T) {
	env := openTestEnv(t)
	txn, err := env.Begin(true)
	require.NoError(t, err)
	defer txn.Abort() //nolint:errcheck

	assert.Error(t, txn.Renew())
}

func TestRenewObservesLaterCommit(t *testing.T) {
	env := openTestEnv(t)

	roTxn, err := env.Begin(false)
	require.NoError(t, err)

	writeTxn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, writeTxn.Locations().Put(1, types.Location{LatE7: 9, LonE7: 9, Version: 1}))
	require.NoError(t, writeTxn.Commit())

	_, ok := roTxn.Locations().Get(1)
	assert.False(t, ok, "a read-only txn's snapshot predates the later commit until renewed")

	require.NoError(t, roTxn.Renew())
	loc, ok := roTxn.Locations().Get(1)
	require.True(t, ok)
	assert.Equal(t, int32(9), loc.LatE7)

	require.NoError(t, roTxn.Abort())
}
