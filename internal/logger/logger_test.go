package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSensitiveKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "u1", "refresh_token", "abc", "Email", "a@b.c", "dangling"})

	assert.Equal(t, []interface{}{"user_id", "u1", "refresh_token", "[REDACTED]", "Email", "[REDACTED]", "dangling"}, out)
}

func TestNopLoggerIsUsable(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("hello", "k", 1)
	l.Sync()
}
