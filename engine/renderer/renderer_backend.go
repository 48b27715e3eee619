package renderer

import (
	"fmt"
	"strings"
)

// RendererBackendType identifies the device implementation the renderer runs on.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU device presenting to a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless selects the recording device that needs no GPU.
	BackendTypeHeadless
)

func (b RendererBackendType) String() string {
	switch b {
	case BackendTypeHeadless:
		return "headless"
	default:
		return "wgpu"
	}
}

// ParseBackendType maps a config value to a backend type.
//
// Parameters:
//   - s: "wgpu" or "headless", case-insensitive
//
// Returns:
//   - RendererBackendType: the parsed backend
//   - error: an error for any other value
func ParseBackendType(s string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	case "headless":
		return BackendTypeHeadless, nil
	default:
		return 0, fmt.Errorf("renderer: unknown backend %q", s)
	}
}
