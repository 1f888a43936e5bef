package log_test

import (
	"context"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_store/effects/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEffect_WritesLevelAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx, endOfLogHandler := log.WithZapEffectHandler(context.Background(), 4, zap.New(core))
	defer endOfLogHandler()

	log.Effect(ctx, log.LogWarn, "registry shard is hot", map[string]interface{}{
		"shard": 3,
	})
	log.Effect(ctx, log.LogDebug, "handle removed", nil)

	require.Eventually(t, func() bool { return logs.Len() == 2 }, time.Second, 5*time.Millisecond)

	entries := logs.AllUntimed()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "registry shard is hot", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["shard"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestTryEffect_NoHandlerIsDropped(t *testing.T) {
	assert.False(t, log.TryEffect(context.Background(), log.LogInfo, "nobody", nil))

	core, logs := observer.New(zap.InfoLevel)
	ctx, endOfLogHandler := log.WithZapEffectHandler(context.Background(), 1, zap.New(core))
	defer endOfLogHandler()

	assert.True(t, log.TryEffect(ctx, log.LogInfo, "somebody", nil))
	require.Eventually(t, func() bool { return logs.FilterMessage("somebody").Len() == 1 }, time.Second, 5*time.Millisecond)
}
