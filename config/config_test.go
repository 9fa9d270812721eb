package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"FOOTAGE_PATH", "PORT", "LOG_LEVEL", "LOG_FORMAT", "WATCH_FOOTAGE", "UPLOAD_DIR", "MQTT_BROKER"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/footage", cfg.FootagePath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, 3, cfg.HighlightLimit)
	assert.Equal(t, int64(8<<30), cfg.MaxUploadBytes)
	assert.Equal(t, "teslacam/library", cfg.MQTT.Topic)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
footage_path: /mnt/teslacam
port: "9090"
watch: false
watch_debounce: 5s
highlight_limit: 5
mqtt:
  broker: tcp://broker:1883
  topic: cars/model3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	t.Setenv("PORT", "7070")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/teslacam", cfg.FootagePath)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.Watch)
	assert.Equal(t, 5*time.Second, cfg.WatchDebounce)
	assert.Equal(t, 5, cfg.HighlightLimit)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "cars/model3", cfg.MQTT.Topic)
	assert.Equal(t, "teslacam", cfg.MQTT.ClientID)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_WatchEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("WATCH_FOOTAGE", "false")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.Watch)
}
