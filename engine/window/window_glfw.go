package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errClosed = errors.New("window: closed")

var glfwKeys = map[glfw.Key]Key{
	glfw.KeyLeft:  KeyLeft,
	glfw.KeyRight: KeyRight,
	glfw.KeyUp:    KeyUp,
	glfw.KeyDown:  KeyDown,
	glfw.KeyW:     KeyW,
	glfw.KeyA:     KeyA,
	glfw.KeyS:     KeyS,
	glfw.KeyD:     KeyD,
	glfw.KeyQ:     KeyQ,
	glfw.KeySpace: KeySpace,
}

var glfwButtons = map[glfw.MouseButton]MouseButton{
	glfw.MouseButtonLeft:   MouseButtonLeft,
	glfw.MouseButtonRight:  MouseButtonRight,
	glfw.MouseButtonMiddle: MouseButtonMiddle,
}

// glfwWindow is the GLFW implementation of Window.
type glfwWindow struct {
	window *glfw.Window

	width  int
	height int

	onKey         func(key Key)
	onMouseButton func(button MouseButton, pressed bool, x, y int32)
	onMouseMove   func(x, y int32)
	onScroll      func(delta float32)
}

var _ Window = &glfwWindow{}

// openGLFW creates the window without a client API, since WebGPU brings its own, and
// installs the event callbacks. The calling goroutine is locked to its OS thread
// because GLFW must be driven from the thread that initialized it.
func openGLFW(cfg *config) (*glfwWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if cfg.resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(cfg.width, cfg.height, cfg.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create GLFW window: %w", err)
	}
	win.SetSizeLimits(cfg.minWidth, cfg.minHeight, cfg.maxWidth, cfg.maxHeight)

	w := &glfwWindow{window: win}
	// framebuffer size, not window size: they differ on high-DPI displays
	w.width, w.height = win.GetFramebufferSize()

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
			return
		}
		if action == glfw.Release || w.onKey == nil {
			return
		}
		if k, ok := glfwKeys[key]; ok {
			w.onKey(k)
		}
	})
	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		b, ok := glfwButtons[button]
		if !ok || action == glfw.Repeat || w.onMouseButton == nil {
			return
		}
		x, y := win.GetCursorPos()
		w.onMouseButton(b, action == glfw.Press, int32(x), int32(y))
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(int32(x), int32(y))
		}
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
	})
	return w, nil
}

func (w *glfwWindow) OnKey(callback func(key Key))          { w.onKey = callback }
func (w *glfwWindow) OnMouseMove(callback func(x, y int32)) { w.onMouseMove = callback }
func (w *glfwWindow) OnScroll(callback func(delta float32)) { w.onScroll = callback }
func (w *glfwWindow) Width() int                            { return w.width }
func (w *glfwWindow) Height() int                           { return w.height }

func (w *glfwWindow) OnMouseButton(callback func(button MouseButton, pressed bool, x, y int32)) {
	w.onMouseButton = callback
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.window == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.window)
}

func (w *glfwWindow) Poll() bool {
	if w.window == nil {
		return false
	}
	glfw.PollEvents()
	return !w.window.ShouldClose()
}

func (w *glfwWindow) Close() error {
	if w.window == nil {
		return errClosed
	}
	w.window.Destroy()
	w.window = nil
	glfw.Terminate()
	return nil
}
