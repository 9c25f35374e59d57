package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString(" warning "))
	assert.Equal(t, slog.LevelInfo, levelFromString("info"))
	assert.Equal(t, slog.LevelDebug, levelFromString("verbose"))
}

func TestNewWithWriterFormats(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	NewWithWriter(&text, "info", "text").Debug("hidden")
	NewWithWriter(&text, "info", "").Info("shown", "component", "scan")
	assert.NotContains(t, text.String(), "hidden")
	assert.Contains(t, text.String(), "msg=shown component=scan")

	var structured bytes.Buffer
	NewWithWriter(&structured, "debug", "JSON").Info("stored", "day", "2025-11-08")

	var record map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &record))
	assert.Equal(t, "stored", record["msg"])
	assert.Equal(t, "2025-11-08", record["day"])
}
