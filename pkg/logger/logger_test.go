package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_TraceIDAndCaller(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger(logrus.DebugLevel, &buf)

	ctx := WithTraceID(context.Background(), "trace-123")
	l.Info(ctx, "matched %d candidates", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "[TestLogger_TraceIDAndCaller] matched 3 candidates", entry["msg"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger(logrus.WarnLevel, &buf)

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetDefaultLogger(t *testing.T) {
	prev := GetDefaultLogger()
	t.Cleanup(func() { SetDefaultLogger(prev) })

	var buf bytes.Buffer
	SetDefaultLogger(newLogrusLogger(logrus.InfoLevel, &buf))
	SetDefaultLogger(nil)

	Error(context.Background(), "boom: %s", "x")
	assert.Contains(t, buf.String(), "[TestSetDefaultLogger] boom: x")
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Equal(t, "abc", GetTraceID(WithTraceID(context.Background(), "abc")))
}

func TestNewLogger_Defaults(t *testing.T) {
	l := NewLogger(nil)
	require.NotNil(t, l)

	l = NewLogger(&LoggerConfig{Level: "not-a-level"})
	require.NotNil(t, l)
	assert.True(t, l.(*logrusLogger).logger.IsLevelEnabled(logrus.InfoLevel))
	assert.False(t, l.(*logrusLogger).logger.IsLevelEnabled(logrus.DebugLevel))
}
