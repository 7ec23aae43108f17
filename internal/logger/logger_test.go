package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = &buf

	log, err := NewLogger(cfg)
	require.NoError(t, err)

	WithFile(log, "/photos/a.jpg").Info("indexed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "indexed", line["message"])
	assert.Equal(t, "/photos/a.jpg", line["file"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "timestamp")
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "collection.log")
	cfg := DefaultConfig()
	cfg.FilePath = path
	cfg.Console = false

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	WithOperation(log, "index").Warn("something happened")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "something happened")
	assert.Contains(t, string(data), "operation=index")
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "error"
	cfg.Output = &buf

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, log.GetLevel())

	WithRoot(log, "/photos").Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNewLoggerRejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := NewLogger(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Format = "xml"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}
