package frame

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T, options ...MultiplexerOption) (*Multiplexer, *gpu.HeadlessDevice) {
	t.Helper()
	dev := gpu.NewHeadlessDevice()
	m, err := NewMultiplexer(dev, options...)
	require.NoError(t, err)
	return m, dev
}

func TestSlotRotation(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		m, dev := newTestMux(t, WithFramesInFlight(n))
		ctx := context.Background()
		for tick := range 7 {
			assert.Equal(t, tick%n, m.CurrentFrameIndex())
			s, err := m.BeginFrame(ctx)
			require.NoError(t, err)
			assert.Equal(t, tick%n, s.Index())
			require.NoError(t, m.EndFrame())
		}
		assert.Equal(t, uint64(7), m.Tick())
		assert.Len(t, dev.Submissions(), 7)
		assert.Equal(t, 7, dev.Presented())
		assert.Equal(t, 7, dev.FenceWaits())
		assert.Empty(t, dev.Violations())
	}
}

func TestInvalidFramesInFlight(t *testing.T) {
	dev := gpu.NewHeadlessDevice()
	_, err := NewMultiplexer(dev, WithFramesInFlight(0))
	assert.ErrorIs(t, err, gpu.ErrInvalidDescriptor)
	_, err = NewMultiplexer(dev, WithFramesInFlight(MaxFramesInFlight+1))
	assert.ErrorIs(t, err, gpu.ErrInvalidDescriptor)
}

func TestBeginEndMisuse(t *testing.T) {
	m, _ := newTestMux(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.EndFrame(), ErrNoFrame)
	assert.ErrorIs(t, m.SubmitAndWait(ctx), ErrNoFrame)

	_, err := m.BeginFrame(ctx)
	require.NoError(t, err)
	_, err = m.BeginFrame(ctx)
	assert.ErrorIs(t, err, ErrFrameInProgress)
	require.NoError(t, m.EndFrame())
}

func TestStaleSlot(t *testing.T) {
	m, _ := newTestMux(t, WithFramesInFlight(2))
	ctx := context.Background()

	first, err := m.BeginFrame(ctx)
	require.NoError(t, err)
	_, err = first.CommandBuffer()
	require.NoError(t, err)
	require.NoError(t, m.EndFrame())

	_, err = first.CommandBuffer()
	assert.ErrorIs(t, err, ErrStaleSlot)

	_, err = m.BeginFrame(ctx)
	require.NoError(t, err)
	_, _, err = first.WriteInstances(make([]byte, 96), 1)
	assert.ErrorIs(t, err, ErrStaleSlot)
	require.NoError(t, m.EndFrame())

	// same index, later tick
	_, err = m.BeginFrame(ctx)
	require.NoError(t, err)
	_, err = first.WriteCamera(make([]byte, 64))
	assert.ErrorIs(t, err, ErrStaleSlot)
	_, err = first.SwapchainImage()
	assert.ErrorIs(t, err, ErrStaleSlot)
	require.NoError(t, m.EndFrame())
}

func TestAcquireHookRunsAfterFenceWait(t *testing.T) {
	m, dev := newTestMux(t, WithFramesInFlight(2))
	ctx := context.Background()

	var seen []int
	var waits []int
	m.OnSlotAcquired(func(slot int) {
		seen = append(seen, slot)
		waits = append(waits, dev.FenceWaits())
	})
	for range 4 {
		_, err := m.BeginFrame(ctx)
		require.NoError(t, err)
		require.NoError(t, m.EndFrame())
	}
	assert.Equal(t, []int{0, 1, 0, 1}, seen)
	assert.Equal(t, []int{1, 2, 3, 4}, waits)
}

func TestWriteInstancesAppendsWithinFrame(t *testing.T) {
	m, dev := newTestMux(t, WithInstanceStride(4), WithInstanceCapacity(8, 64))
	ctx := context.Background()

	s, err := m.BeginFrame(ctx)
	require.NoError(t, err)

	buf, off, err := s.WriteInstances([]byte{1, 1, 1, 1, 2, 2, 2, 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
	buf2, off2, err := s.WriteInstances([]byte{3, 3, 3, 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), off2)
	assert.Equal(t, buf.ID(), buf2.ID())

	data := dev.BufferData(buf)
	assert.Equal(t, []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, data[:12])
	require.NoError(t, m.EndFrame())
}

func TestInstanceBufferGrowthRetiresOldBuffer(t *testing.T) {
	m, dev := newTestMux(t, WithFramesInFlight(2), WithInstanceStride(4), WithInstanceCapacity(2, 64))
	ctx := context.Background()

	s, err := m.BeginFrame(ctx)
	require.NoError(t, err)
	old, _, err := s.WriteInstances(make([]byte, 8), 2)
	require.NoError(t, err)
	cmd, err := s.CommandBuffer()
	require.NoError(t, err)
	img, err := s.SwapchainImage()
	require.NoError(t, err)
	cmd.BeginRendering(gpu.RenderingInfo{Color: gpu.ColorAttachment{Image: img}, Width: 1, Height: 1})
	cmd.BindVertexBuffer(1, old, 0)
	cmd.EndRendering()

	grown, off, err := s.WriteInstances(make([]byte, 12), 3)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID(), grown.ID())
	assert.Equal(t, uint64(8), off)
	assert.Equal(t, 8, s.InstanceCapacity())
	require.NoError(t, m.EndFrame())

	// still referenced by the frame that was just submitted
	assert.True(t, dev.Live(old.ID()))

	_, err = m.BeginFrame(ctx)
	require.NoError(t, err)
	require.NoError(t, m.EndFrame())
	assert.True(t, dev.Live(old.ID()))

	_, err = m.BeginFrame(ctx)
	require.NoError(t, err)
	assert.False(t, dev.Live(old.ID()))
	require.NoError(t, m.EndFrame())
	assert.Empty(t, dev.Violations())
}

func TestInstanceCapacityExceeded(t *testing.T) {
	m, _ := newTestMux(t, WithInstanceStride(4), WithInstanceCapacity(2, 4))
	ctx := context.Background()

	s, err := m.BeginFrame(ctx)
	require.NoError(t, err)
	_, _, err = s.WriteInstances(make([]byte, 20), 5)
	assert.ErrorIs(t, err, ErrInstanceCapacityExceeded)

	_, _, err = s.WriteInstances(make([]byte, 16), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, s.InstanceCapacity())

	// the cap applies per write; a full buffer is replaced
	buf, off, err := s.WriteInstances(make([]byte, 8), 2)
	require.NoError(t, err)
	assert.NotNil(t, buf)
	assert.Equal(t, uint64(0), off)
	require.NoError(t, m.EndFrame())
}

func TestWriteCameraRing(t *testing.T) {
	dev := gpu.NewHeadlessDevice()
	layout, err := dev.CreatePipeline(gpu.PipelineDescriptor{Label: "layout", VertexSource: "v", FragmentSource: "f"})
	require.NoError(t, err)
	m, err := NewMultiplexer(dev, WithCameraUniform(64, 2), WithBindGroupLayout(layout))
	require.NoError(t, err)

	s, err := m.BeginFrame(context.Background())
	require.NoError(t, err)
	a, err := s.WriteCamera(make([]byte, 64))
	require.NoError(t, err)
	b, err := s.WriteCamera(make([]byte, 64))
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID(), b.ID())

	_, err = s.WriteCamera(make([]byte, 64))
	assert.ErrorIs(t, err, ErrViewportsExhausted)
	require.NoError(t, m.EndFrame())

	// the ring resets when the slot is reacquired
	s, err = m.BeginFrame(context.Background())
	require.NoError(t, err)
	_, err = s.WriteCamera(make([]byte, 128))
	assert.ErrorIs(t, err, gpu.ErrOutOfBounds)
	_, err = s.WriteCamera(make([]byte, 64))
	assert.NoError(t, err)
	require.NoError(t, m.EndFrame())
}

func TestSubmitAndWait(t *testing.T) {
	m, dev := newTestMux(t)
	ctx := context.Background()

	s, err := m.BeginFrame(ctx)
	require.NoError(t, err)
	require.NoError(t, m.SubmitAndWait(ctx))
	assert.Len(t, dev.Submissions(), 1)

	cmd, err := s.CommandBuffer()
	require.NoError(t, err)
	assert.True(t, cmd.Recording())
	require.NoError(t, m.EndFrame())
	assert.Len(t, dev.Submissions(), 2)
}

func TestShutdownReleasesEverything(t *testing.T) {
	m, dev := newTestMux(t, WithFramesInFlight(3))
	ctx := context.Background()
	for range 4 {
		_, err := m.BeginFrame(ctx)
		require.NoError(t, err)
		require.NoError(t, m.EndFrame())
	}
	_, err := m.BeginFrame(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, 0, dev.LiveObjects())
	assert.Empty(t, dev.Violations())
	assert.False(t, m.Recording())
}

func TestBeginFrameCancelled(t *testing.T) {
	m, _ := newTestMux(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.BeginFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Recording())
}
