package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeterna/aeterna/internal/config"
)

func TestParseJSONObject(t *testing.T) {
	m, err := parseJSONObject(`{"a":1,"b":"x"}`, "--payload")
	require.NoError(t, err)
	assert.Len(t, m, 2)

	m, err = parseJSONObject("", "--meta")
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = parseJSONObject(`{"a":`, "--payload")
	assert.ErrorContains(t, err, "--payload")

	_, err = parseJSONObject(`[1,2]`, "--payload")
	assert.Error(t, err)

	_, err = parseJSONObject(`null`, "--payload")
	assert.ErrorContains(t, err, "must be a JSON object")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abc", shortHash("abc"))
	long := "0123456789abcdef0123456789abcdef"
	assert.Equal(t, "0123456789abcdef...", shortHash(long))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	t.Setenv(config.KeyEnv, "")
	path := filepath.Join(t.TempDir(), "aeterna.yaml")

	root := NewRoot()
	root.SetArgs([]string{"--config", path, "init"})
	require.NoError(t, root.Execute())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey(), 32)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aeterna.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	root := NewRoot()
	root.SetArgs([]string{"--config", path, "init"})
	err := root.Execute()
	assert.ErrorContains(t, err, "already exists")
}
