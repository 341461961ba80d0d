package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, FormatJSON, slog.LevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("request failed", "error", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["err"])
	assert.NotContains(t, line, "error")
}

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "", slog.LevelDebug)
	require.NoError(t, err)

	logger.Debug("sent", "request", "addVariable")
	assert.Contains(t, buf.String(), "request=addVariable")

	_, err = NewWriter(&buf, "xml", slog.LevelInfo)
	assert.Error(t, err)
}
