package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadLobby(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLobby(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobby.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 19002\nadvertise_host: play.example.com\ngame_port_min: 6000\ngame_port_max: 6010\n",
	), 0o644))

	cfg, err := LoadLobby(path)
	require.NoError(t, err)
	assert.Equal(t, 19002, cfg.Port)
	assert.Equal(t, "play.example.com", cfg.AdvertiseHost)
	assert.Equal(t, 6000, cfg.GamePortMin)
	assert.Equal(t, 6010, cfg.GamePortMax)
	// untouched fields keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, "127.0.0.1", cfg.CatalogHost)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o644))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestDefaultPorts(t *testing.T) {
	assert.Equal(t, 10001, DefaultCatalog().Port)
	assert.Equal(t, 10002, DefaultLobby().Port)
	assert.Equal(t, 10003, DefaultGateway().Port)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}
