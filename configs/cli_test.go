package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefaultConfig(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "parley.toml")
	require.NoError(t, os.WriteFile(file, defaultConfigFile, 0o600))
	return file
}

func readNickname(t *testing.T, file string) string {
	t.Helper()
	data, err := os.ReadFile(file)
	require.NoError(t, err)

	var config struct {
		User struct {
			Nickname string `toml:"nickname"`
		} `toml:"user"`
	}
	require.NoError(t, toml.Unmarshal(data, &config))
	return config.User.Nickname
}

func TestPersistNickname(t *testing.T) {
	file := writeDefaultConfig(t)

	require.NoError(t, PersistNickname(file, "Alice"))
	assert.Equal(t, "Alice", readNickname(t, file))

	// the rest of the config survives the rewrite
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, toml.Unmarshal(data, &config))
	assert.Contains(t, config, "servers")
	assert.Contains(t, config, "chat")
}

func TestClearPersistedNickname(t *testing.T) {
	file := writeDefaultConfig(t)

	require.NoError(t, PersistNickname(file, "Alice"))
	require.NoError(t, ClearPersistedNickname(file))
	assert.Equal(t, "", readNickname(t, file))
}

func TestPersistNicknameMissingFile(t *testing.T) {
	assert.Error(t, PersistNickname(filepath.Join(t.TempDir(), "nope.toml"), "Alice"))
}
