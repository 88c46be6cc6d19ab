package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
log_level: debug

server:
  host: 127.0.0.1
  port: "9000"

metrics:
  enabled: true
  debug: true
  host: 0.0.0.0
  port: "7300"

healthz:
  enabled: true
  host: 0.0.0.0
  port: "7301"

storage:
  audio_dir: /var/lib/callcheck/audio
  temp_dir: /var/lib/callcheck/tmp

collaborators:
  synthesis:
    endpoint: http://tts:8080
    timeout: 45s
  transcription:
    endpoint: http://stt:8080
  analysis:
    endpoint: http://llm:8080

runs:
  max_concurrent: 8
  retention: 72h
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNew(t *testing.T) {
	cfg, err := New(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "http://tts:8080", cfg.Collaborators.Synthesis.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Collaborators.Synthesis.Timeout)
	assert.Equal(t, int64(8), cfg.Runs.MaxConcurrent)
	assert.Equal(t, 72*time.Hour, cfg.Runs.Retention)
}

func TestNewMissingFile(t *testing.T) {
	_, err := New("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateDefaults(t *testing.T) {
	cfg, err := New(writeConfig(t, `
collaborators:
  synthesis:
    endpoint: http://tts:8080
  transcription:
    endpoint: http://stt:8080
  analysis:
    endpoint: http://llm:8080
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "storage/audio", cfg.Storage.AudioDir)
	assert.Equal(t, 60*time.Second, cfg.Collaborators.Synthesis.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Collaborators.Transcription.Timeout)
	assert.Equal(t, int64(4), cfg.Runs.MaxConcurrent)
	assert.Equal(t, 7*24*time.Hour, cfg.Runs.Retention)
}

func TestValidateMissingEndpoint(t *testing.T) {
	cfg, err := New(writeConfig(t, `
collaborators:
  synthesis:
    endpoint: http://tts:8080
`))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateMetricsRequiresAddr(t *testing.T) {
	cfg, err := New(writeConfig(t, `
metrics:
  enabled: true
collaborators:
  synthesis:
    endpoint: http://tts:8080
  transcription:
    endpoint: http://stt:8080
  analysis:
    endpoint: http://llm:8080
`))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
