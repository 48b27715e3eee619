// Package window opens the platform window the wgpu device presents to and turns its
// input events into engine-level callbacks.
package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a mouse button.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Key identifies the keys the engine binds. Other keys are not reported.
type Key int

const (
	KeyUnknown Key = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeySpace
)

// Window is a presentable platform window. Callbacks run on the goroutine that calls Poll.
type Window interface {
	// OnKey sets the callback for key presses and key repeats.
	//
	// Parameters:
	//   - callback: function receiving the pressed key
	OnKey(callback func(key Key))

	// OnMouseButton sets the callback for mouse button presses and releases.
	//
	// Parameters:
	//   - callback: function receiving the button, whether it was pressed and the cursor position
	OnMouseButton(callback func(button MouseButton, pressed bool, x, y int32))

	// OnMouseMove sets the callback for cursor movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	OnMouseMove(callback func(x, y int32))

	// OnScroll sets the callback for the vertical scroll wheel.
	//
	// Parameters:
	//   - callback: function receiving the scroll delta, positive when scrolling up
	OnScroll(callback func(delta float32))

	// SurfaceDescriptor returns the descriptor a WebGPU surface is created from.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform surface descriptor, or nil after Close
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Poll dispatches pending events to the callbacks without blocking.
	//
	// Returns:
	//   - bool: false once the window has been asked to close
	Poll() bool

	// Width returns the framebuffer width in pixels. It is 0 while minimized.
	Width() int

	// Height returns the framebuffer height in pixels. It is 0 while minimized.
	Height() int

	// Close destroys the window. Later calls do nothing.
	//
	// Returns:
	//   - error: an error if the window was never opened
	Close() error
}

// config holds the creation parameters gathered from the builder options.
type config struct {
	title     string
	width     int
	height    int
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int
	resizable bool
}

// NewWindow opens a window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform layer could not be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	cfg := &config{
		title:     "oxyframe",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
		maxWidth:  3840,
		maxHeight: 2160,
		resizable: true,
	}
	for _, opt := range options {
		opt(cfg)
	}
	return openGLFW(cfg)
}
