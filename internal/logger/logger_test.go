package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestSanitizeRedactsCredentials(t *testing.T) {
	l, logs := observed()
	l.Info("llm configured", "provider", "gemini", "api_key", "sk-123", "input_tokens", 42)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "gemini", fields["provider"])
	assert.EqualValues(t, 42, fields["input_tokens"])
}

func TestSanitizeShortensImageData(t *testing.T) {
	l, logs := observed()
	url := "data:image/png;base64," + strings.Repeat("A", 500)
	l.With("node_id", "creative-1").Debug("image ready", "image_url", url)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "creative-1", fields["node_id"])
	assert.Equal(t, "[inline data 522 bytes]", fields["image_url"])
}

func TestOddKeyValuesKeepTrailingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, out)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).SugaredLogger)
	l := NewNop()
	assert.Same(t, l, OrNop(l))
}
