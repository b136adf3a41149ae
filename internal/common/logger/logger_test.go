package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapperForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Component(NewZapAdapter(zap.New(core)), "search")

	l.Warn("cache read failed", map[string]interface{}{
		"key":   "search:abc",
		"error": errors.New("dial tcp: refused"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "search", ctx["component"])
		assert.Equal(t, "search:abc", ctx["key"])
		assert.Equal(t, "dial tcp: refused", ctx["error"])
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	}
}

func TestNewHonoursLevel(t *testing.T) {
	l := New("error", "json")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestFromContext(t *testing.T) {
	fallback := NewNoOpLogger()
	assert.Equal(t, fallback, FromContext(context.Background(), fallback))

	scoped := NewTestLogger(t)
	ctx := WithContext(context.Background(), scoped)
	assert.Equal(t, scoped, FromContext(ctx, fallback))
}
