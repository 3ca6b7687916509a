package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{ServiceName: "checkout", Level: "debug", Output: &buf})

	ctx := l.WithField(context.Background(), "session_id", "cs_test_1")
	l.Error(ctx, "persist failed", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "checkout", entry["service"])
	assert.Equal(t, "cs_test_1", entry["session_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Output: &buf})

	l.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, "info", parseLevel("nope").String())
	assert.Equal(t, "info", parseLevel("").String())
}
