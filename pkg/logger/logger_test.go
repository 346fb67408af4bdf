package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"job_id", "abc", "api_key", "sk-123", "WordPress_App_Password", "x y", "dangling"})
	assert.Equal(t, []interface{}{"job_id", "abc", "api_key", "[REDACTED]", "WordPress_App_Password", "[REDACTED]", "dangling"}, got)
}

func TestLoggerRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("authorization", "Bearer abc").Info("publishing", "url", "https://example.com")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["authorization"])
	assert.Equal(t, "https://example.com", fields["url"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("dev", "loud")
	require.Error(t, err)

	l, err := New("prod", "warn")
	require.NoError(t, err)
	assert.NotNil(t, l.SugaredLogger)
}
