package gpu

import (
	"context"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFenceWaitsForItsOwnSubmission(t *testing.T) {
	d := &WGPUDevice{mu: &sync.Mutex{}}
	older, err := d.CreateFence("frame-0", true)
	require.NoError(t, err)
	newer, err := d.CreateFence("frame-1", true)
	require.NoError(t, err)

	older.(*wgpuFence).signalOn(wgpu.SubmissionIndex(7))
	newer.(*wgpuFence).signalOn(wgpu.SubmissionIndex(8))

	target := d.waitTarget(older.(*wgpuFence))
	assert.Equal(t, wgpu.SubmissionIndex(7), target.SubmissionIndex)
	assert.Equal(t, wgpu.SubmissionIndex(8), d.waitTarget(newer.(*wgpuFence)).SubmissionIndex)

	d.ResetFence(older)
	assert.False(t, older.(*wgpuFence).pending)
	assert.True(t, newer.(*wgpuFence).pending)
}

func TestWaitFenceRejectsForeignHandles(t *testing.T) {
	d := &WGPUDevice{mu: &sync.Mutex{}}
	foreign, err := NewHeadlessDevice().CreateFence("f", true)
	require.NoError(t, err)
	assert.ErrorIs(t, d.WaitFence(context.Background(), foreign), ErrForeignHandle)
}
