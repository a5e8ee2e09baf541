package main

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
    <node id="1" version="1" timestamp="2024-01-01T00:00:00Z" changeset="1" uid="1" user="a" lat="1.0" lon="2.0"/>
  </create>
</osmChange>`

func TestRunRejectsWrongArgumentCount(t *testing.T) {
	rootCmd.SetArgs([]string{"only-one-arg"})
	err := rootCmd.Execute()
	require.Error(t, err)
	var usage *usageError
	assert.ErrorAs(t, err, &usage)
}

func TestRunEndToEndDryRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "osmaug.db")
	env, err := store.Open(dbPath, true)
	require.NoError(t, err)
	require.NoError(t, env.Close())

	changePath := filepath.Join(t.TempDir(), "1.osc")
	require.NoError(t, os.WriteFile(changePath, []byte(changeFile), 0o600))

	outDir := t.TempDir()
	rootCmd.SetArgs([]string{dbPath, changePath, "1", "2024-01-01T00:10:00Z", "--output-dir", outDir})
	require.NoError(t, rootCmd.Execute())

	_, err = os.Stat(filepath.Join(outDir, "1.adiff.xml"))
	assert.NoError(t, err)
}

func TestFlagOrDefaultPrefersExplicitFlagOverConfig(t *testing.T) {
	flags := rootCmd.Flags()
	require.NoError(t, flags.Set("commit", "true"))
	defer flags.Set("commit", "false") //nolint:errcheck

	assert.True(t, flagOrDefault(flags, "commit", false))
}

func TestFlagOrDefaultFallsBackToConfigWhenUnset(t *testing.T) {
	flags := rootCmd.Flags()
	require.False(t, flags.Changed("verbose"))
	assert.True(t, flagOrDefault(flags, "verbose", true))
}

func TestStringFlagOrDefaultFallsBackToCobraDefault(t *testing.T) {
	flags := rootCmd.Flags()
	assert.Equal(t, "info", stringFlagOrDefault(flags, "log-level", ""))
}
