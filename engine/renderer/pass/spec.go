package pass

import "github.com/Carmen-Shannon/oxyframe/engine/renderer/gpu"

// RenderingSpec describes the targets of one rendering scope.
// A nil ColorTarget renders into the frame's swapchain image. Zero Width or Height
// use the color target's extent. ColorLayout and DepthLayout are the layouts the
// targets are in before the pass; Undefined means the last layout this orchestrator
// left them in. A zero ColorFinalLayout picks PresentSrc for the swapchain and
// ShaderReadOnly for offscreen targets.
type RenderingSpec struct {
	ColorTarget      gpu.Image
	ColorLayout      gpu.ImageLayout
	ColorLoadOp      gpu.LoadOp
	ColorStoreOp     gpu.StoreOp
	ColorFinalLayout gpu.ImageLayout

	DepthTarget  gpu.Image
	DepthLayout  gpu.ImageLayout
	DepthLoadOp  gpu.LoadOp
	DepthStoreOp gpu.StoreOp

	ClearColor [4]float32
	ClearDepth float32
	Width      uint32
	Height     uint32
}

// SceneViewportInfo is what a scene viewport hands the renderer: where to draw and what
// to clear it to. A nil ColorImage means the swapchain.
type SceneViewportInfo struct {
	ColorImage       gpu.Image
	ColorImageLayout gpu.ImageLayout
	ColorClearValue  [4]float32
	DepthImage       gpu.Image
	Width            uint32
	Height           uint32
}

// RenderingSpec converts v into a spec that clears both attachments.
func (v SceneViewportInfo) RenderingSpec() RenderingSpec {
	return RenderingSpec{
		ColorTarget:  v.ColorImage,
		ColorLayout:  v.ColorImageLayout,
		ColorLoadOp:  gpu.LoadOpClear,
		ColorStoreOp: gpu.StoreOpStore,
		DepthTarget:  v.DepthImage,
		DepthLoadOp:  gpu.LoadOpClear,
		DepthStoreOp: gpu.StoreOpDontCare,
		ClearColor:   v.ColorClearValue,
		ClearDepth:   1,
		Width:        v.Width,
		Height:       v.Height,
	}
}
