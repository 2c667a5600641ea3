package logger

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: zerolog.InfoLevel, Output: &buf, JSON: true}).With("outbox")

	l.Debug("hidden")
	l.Error(stderrors.New("broker down"), "publish failed", "event_id", "e-1", "attempt", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "publish failed", line["message"])
	assert.Equal(t, "broker down", line["error"])
	assert.Equal(t, "outbox", line["component"])
	assert.Equal(t, "e-1", line["event_id"])
	assert.EqualValues(t, 3, line["attempt"])
}
