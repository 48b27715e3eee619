package gpu

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the display refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// ParsePresentMode maps a config string to a PresentMode. Unknown values select vsync.
func ParsePresentMode(s string) PresentMode {
	if s == "uncapped" || s == "immediate" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

type WGPUDeviceOption func(*WGPUDevice)

// WithPresentMode sets the swapchain present mode.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - WGPUDeviceOption: a function that sets the present mode
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *WGPUDevice) {
		d.presentMode = mode
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUDeviceOption: a function that sets the adapter preference
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *WGPUDevice) {
		d.forceFallback = force
	}
}
