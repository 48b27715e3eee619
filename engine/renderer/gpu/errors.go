package gpu

import "errors"

var (
	ErrNotRecording      = errors.New("gpu: command buffer is not recording")
	ErrAlreadyRecording  = errors.New("gpu: command buffer is already recording")
	ErrNestedRendering   = errors.New("gpu: rendering scope already open")
	ErrNoRendering       = errors.New("gpu: no rendering scope open")
	ErrOutOfBounds       = errors.New("gpu: write out of buffer bounds")
	ErrInvalidDescriptor = errors.New("gpu: invalid descriptor")
	ErrForeignHandle     = errors.New("gpu: handle belongs to another device")
	ErrDestroyed         = errors.New("gpu: object already destroyed")
	ErrSwapchainAcquired = errors.New("gpu: swapchain image already acquired")
	ErrNoSwapchainImage  = errors.New("gpu: no swapchain image acquired")
)
