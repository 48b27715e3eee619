package main

import (
	"github.com/Carmen-Shannon/oxyframe/engine/camera"
	"github.com/Carmen-Shannon/oxyframe/engine/window"
)

// bindInput drives the orbit controller from the window: drag with the left or middle
// button to orbit, scroll to zoom, arrows or WASD to step and Q to quit.
func bindInput(win window.Window, ctrl camera.CameraController, quit func()) {
	var dragging bool
	var lastX, lastY int32

	win.OnMouseButton(func(button window.MouseButton, pressed bool, x, y int32) {
		if button == window.MouseButtonRight {
			return
		}
		dragging = pressed
		lastX, lastY = x, y
	})
	win.OnMouseMove(func(x, y int32) {
		if dragging {
			ctrl.Orbit(float32(x-lastX), float32(y-lastY))
		}
		lastX, lastY = x, y
	})
	win.OnScroll(ctrl.Zoom)
	win.OnKey(func(key window.Key) {
		switch key {
		case window.KeyLeft, window.KeyA:
			ctrl.OrbitLeft()
		case window.KeyRight, window.KeyD:
			ctrl.OrbitRight()
		case window.KeyUp, window.KeyW:
			ctrl.OrbitUp()
		case window.KeyDown, window.KeyS:
			ctrl.OrbitDown()
		case window.KeyQ:
			quit()
		}
	})
}
