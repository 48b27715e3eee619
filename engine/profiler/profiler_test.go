package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	now := time.Unix(0, 0)
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(func() time.Time { return now }),
		WithLogger(zap.New(core)),
	)

	for range 29 {
		now = now.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	now = now.Add(710 * time.Millisecond)
	require.True(t, p.Tick())
	assert.InDelta(t, 30, p.Last().FPS, 0.01)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "frame stats", entry.Message)
	assert.Contains(t, entry.ContextMap(), "fps")
	assert.Contains(t, entry.ContextMap(), "heap_mb")

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
}
