package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Msg("applying change")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "applying change", entry["message"])
}

func TestWithRunAddsSeqNumberField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithRun("123456").Info().Msg("starting")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "123456", entry["seq_number"])
}

func TestWithEntityAddsKindAndID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithEntity("node", 42).Info().Msg("modified")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "node", entry["kind"])
	assert.EqualValues(t, 42, entry["id"])
}

func TestInitDefaultsToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})

	Logger.Debug().Msg("should be filtered")
	assert.Empty(t, buf.Bytes())

	Logger.Info().Msg("should appear")
	assert.NotEmpty(t, buf.Bytes())
}
