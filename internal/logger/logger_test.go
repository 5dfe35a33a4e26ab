package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	previous := log
	log = zap.New(core)
	t.Cleanup(func() { log = previous })

	return logs
}

func TestDefaultIsNop(t *testing.T) {
	assert.NotNil(t, Default())
	assert.NotPanics(t, func() {
		Info("not initialized")
	})
}

func TestWithFields(t *testing.T) {
	logs := observe(t)

	ctx := WithFields(context.Background(), zap.String("run_id", "r1"))
	ctx = WithFields(ctx, zap.String("table", "NFTEvents"))
	InfoCtx(ctx, "saved")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "r1", fields["run_id"])
		assert.Equal(t, "NFTEvents", fields["table"])
	}
}

func TestWithFields_DoesNotLeakToParent(t *testing.T) {
	logs := observe(t)

	parent := WithFields(context.Background(), zap.String("run_id", "r1"))
	_ = WithFields(parent, zap.String("child", "c"))
	InfoCtx(parent, "parent")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		_, ok := entries[0].ContextMap()["child"]
		assert.False(t, ok)
	}
}

func TestErrorCtx(t *testing.T) {
	logs := observe(t)

	ErrorCtx(context.Background(), errors.New("boom"))
	ErrorCtx(context.Background(), nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "boom", entries[0].Message)
		assert.Equal(t, "error occurred", entries[1].Message)
	}
}

func TestInitialize(t *testing.T) {
	previous := log
	t.Cleanup(func() { log = previous })

	err := Initialize(Config{Debug: true, Fields: []zap.Field{zap.String("service", "test")}})
	assert.NoError(t, err)
	assert.NotNil(t, Default())
}
