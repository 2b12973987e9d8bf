package ldap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingLogger captures log calls for assertions. Field maps are
// copied at call time because LogOperation reuses its map across calls.
type recordingLogger struct {
	entries []recordedEntry
}

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func (r *recordingLogger) record(level, msg string, fields map[string]any) {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.entries = append(r.entries, recordedEntry{level: level, msg: msg, fields: copied})
}

func (r *recordingLogger) Debug(msg string, fields map[string]any) { r.record("debug", msg, fields) }
func (r *recordingLogger) Info(msg string, fields map[string]any)  { r.record("info", msg, fields) }
func (r *recordingLogger) Warn(msg string, fields map[string]any)  { r.record("warn", msg, fields) }
func (r *recordingLogger) Error(msg string, fields map[string]any) { r.record("error", msg, fields) }

func TestSanitizeFields(t *testing.T) {
	fields := map[string]any{
		"server":   "ldaps://ldap.example.com:636",
		"Password": "hunter2",
		"token":    "abc123",
		"url":      "ldap://host/?password=hunter2",
		"attempts": 3,
	}

	sanitized := SanitizeFields(fields)

	assert.Equal(t, "ldaps://ldap.example.com:636", sanitized["server"])
	assert.Equal(t, "[REDACTED]", sanitized["Password"])
	assert.Equal(t, "[REDACTED]", sanitized["token"])
	assert.Equal(t, "[REDACTED]", sanitized["url"])
	assert.Equal(t, 3, sanitized["attempts"])

	// Original map stays untouched.
	assert.Equal(t, "hunter2", fields["Password"])
}

func TestLogOperationSuccess(t *testing.T) {
	rec := &recordingLogger{}

	err := LogOperation(rec, "search_people", map[string]any{
		"query":    "alice",
		"password": "hunter2",
	}, func() error {
		return nil
	})

	require.NoError(t, err)
	require.Len(t, rec.entries, 2)

	started := rec.entries[0]
	assert.Equal(t, "debug", started.level)
	assert.Equal(t, "operation started", started.msg)
	assert.Equal(t, "search_people", started.fields["operation"])
	assert.Equal(t, "[REDACTED]", started.fields["password"])
	assert.NotEmpty(t, started.fields["operation_id"])

	completed := rec.entries[1]
	assert.Equal(t, "info", completed.level)
	assert.Equal(t, "operation completed", completed.msg)
	assert.Equal(t, started.fields["operation_id"], completed.fields["operation_id"])
	assert.Contains(t, completed.fields, "duration_ms")
}

func TestLogOperationFailure(t *testing.T) {
	rec := &recordingLogger{}
	boom := errors.New("server is busy")

	err := LogOperation(rec, "search_people", nil, func() error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Len(t, rec.entries, 2)

	failed := rec.entries[1]
	assert.Equal(t, "warn", failed.level)
	assert.Equal(t, "operation failed", failed.msg)
	assert.Equal(t, "server is busy", failed.fields["error"])
	assert.Contains(t, failed.fields, "duration_ms")
}

func TestZapLoggerFieldOrder(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))

	log.Info("connected", map[string]any{
		"server":  "ldap://localhost:389",
		"attempt": 1,
		"base_dn": "dc=example,dc=com",
	})

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connected", entries[0].Message)

	var keys []string
	for _, f := range entries[0].Context {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"attempt", "base_dn", "server"}, keys)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()

	// Must be safe to call with anything, including nil fields.
	log.Debug("ignored", nil)
	log.Info("ignored", map[string]any{"k": "v"})
	log.Warn("ignored", nil)
	log.Error("ignored", nil)
}
