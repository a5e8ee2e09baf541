package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/osmaug/pkg/store"
)

const changeFile = `<osmChange version="0.6" generator="test">
  <create>
    <node id="1" version="1" timestamp="2024-01-01T00:00:00Z" changeset="1" uid="1" user="a" lat="10.0" lon="20.0">
      <tag k="amenity" v="cafe"/>
    </node>
  </create>
</osmChange>`

func writeChangeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "000000001.osc")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func newTestRequest(t *testing.T, changePath string, commit bool) Request {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := store.Open(dbPath, true)
	require.NoError(t, err)
	require.NoError(t, env.Close())

	return Request{
		DatabasePath: dbPath,
		ChangeFile:   changePath,
		SeqNumber:    "2",
		Timestamp:    "2024-01-01T00:10:00Z",
		Commit:       commit,
		OutputDir:    t.TempDir(),
	}
}

func TestRunDryRunDoesNotMutateStore(t *testing.T) {
	req := newTestRequest(t, writeChangeFile(t, changeFile), false)

	result, err := Run(req)
	require.NoError(t, err)
	assert.False(t, result.Committed)
	assert.Equal(t, 1, result.Apply.Nodes)

	_, err = os.Stat(result.DiffPath)
	assert.NoError(t, err, "a dry run still emits the augmented diff")

	env, err := store.Open(req.DatabasePath, true)
	require.NoError(t, err)
	defer env.Close() //nolint:errcheck
	txn, err := env.Begin(false)
	require.NoError(t, err)
	defer txn.Abort() //nolint:errcheck
	_, ok := txn.Locations().Get(1)
	assert.False(t, ok, "dry run must not persist the write pass")
}

func TestRunCommitPersistsChangesAndSequenceNumber(t *testing.T) {
	req := newTestRequest(t, writeChangeFile(t, changeFile), true)

	result, err := Run(req)
	require.NoError(t, err)
	assert.True(t, result.Committed)

	env, err := store.Open(req.DatabasePath, true)
	require.NoError(t, err)
	defer env.Close() //nolint:errcheck
	txn, err := env.Begin(false)
	require.NoError(t, err)
	defer txn.Abort() //nolint:errcheck

	loc, ok := txn.Locations().Get(1)
	require.True(t, ok)
	assert.Equal(t, int32(100000000), loc.LatE7)

	seq, ok := txn.Metadata().Get(store.MetaSequenceNumber)
	require.True(t, ok)
	assert.Equal(t, "2", seq)
}

func TestRunRejectsNonMonotonicSequence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := store.Open(dbPath, true)
	require.NoError(t, err)
	wtxn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, wtxn.Metadata().Put(store.MetaSequenceNumber, "5"))
	require.NoError(t, wtxn.Commit())
	require.NoError(t, env.Close())

	req := Request{
		DatabasePath: dbPath,
		ChangeFile:   writeChangeFile(t, changeFile),
		SeqNumber:    "5",
		Timestamp:    "2024-01-01T00:10:00Z",
		Commit:       true,
		OutputDir:    t.TempDir(),
	}

	_, err = Run(req)
	assert.ErrorIs(t, err, ErrNonMonotonicSequence)
}

func TestRunAllowsMonotonicIncreaseAcrossDigitWidths(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := store.Open(dbPath, true)
	require.NoError(t, err)
	wtxn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, wtxn.Metadata().Put(store.MetaSequenceNumber, "9"))
	require.NoError(t, wtxn.Commit())
	require.NoError(t, env.Close())

	req := Request{
		DatabasePath: dbPath,
		ChangeFile:   writeChangeFile(t, changeFile),
		SeqNumber:    "10",
		Timestamp:    "2024-01-01T00:10:00Z",
		Commit:       true,
		OutputDir:    t.TempDir(),
	}

	result, err := Run(req)
	require.NoError(t, err)
	assert.True(t, result.Committed)
}

func TestRunRequiresSequenceNumber(t *testing.T) {
	req := newTestRequest(t, writeChangeFile(t, changeFile), false)
	req.SeqNumber = ""

	_, err := Run(req)
	assert.Error(t, err)
}

func TestRunRejectsInvalidTimestamp(t *testing.T) {
	req := newTestRequest(t, writeChangeFile(t, changeFile), false)
	req.Timestamp = "not-a-timestamp"

	_, err := Run(req)
	assert.Error(t, err)
}

func TestRunRejectsMissingChangeFile(t *testing.T) {
	req := newTestRequest(t, filepath.Join(t.TempDir(), "absent.osc"), false)

	_, err := Run(req)
	assert.Error(t, err)
}

func TestSeqGreaterNumericComparison(t *testing.T) {
	assert.True(t, seqGreater("10", "9"))
	assert.False(t, seqGreater("9", "10"))
	assert.False(t, seqGreater("5", "5"))
}

func TestSeqGreaterFallsBackToLexicalOnMalformedInput(t *testing.T) {
	assert.True(t, seqGreater("b", "a"))
}
