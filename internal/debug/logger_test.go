package debug

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() { Debug("noop", "k", "v") })
}

func TestInitWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithOptions("info", "json", &buf)
	t.Cleanup(func() { InitWithOptions("warn", "text", &bytes.Buffer{}) })

	Debug("hidden")
	Info("applied step", "index", 2)

	assert.False(t, Enabled())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "applied step", entry["msg"])
	assert.EqualValues(t, 2, entry["index"])
}

func TestInitWithOptions_DebugText(t *testing.T) {
	var buf bytes.Buffer
	InitWithOptions("debug", "text", &buf)
	t.Cleanup(func() { InitWithOptions("warn", "text", &bytes.Buffer{}) })

	With("run_id", "abc").Debug("statement")
	assert.True(t, Enabled())
	assert.Contains(t, buf.String(), "run_id=abc")
	assert.Contains(t, buf.String(), "msg=statement")
}
