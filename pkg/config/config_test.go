package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)
}

func TestLoadEmptyPathReturnsZeroValue(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)
}

func TestLoadParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osmaug.yaml")
	require.NoError(t, writeFile(path, `
verbose: true
commit: true
metrics_addr: ":9100"
output_dir: /var/lib/osmaug/diffs
log_level: debug
log_json: true
`))

	d, err := Load(path)
	require.NoError(t, err)
	assert.True(t, d.Verbose)
	assert.True(t, d.Commit)
	assert.Equal(t, ":9100", d.MetricsAddr)
	assert.Equal(t, "/var/lib/osmaug/diffs", d.OutputDir)
	assert.Equal(t, "debug", d.LogLevel)
	assert.True(t, d.LogJSON)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, writeFile(path, "verbose: [unterminated"))

	_, err := Load(path)
	assert.Error(t, err)
}
