package window

// WindowBuilderOption configures a window before it is opened.
type WindowBuilderOption func(c *config)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(c *config) {
		c.title = title
	}
}

// WithSize sets the initial client size in screen coordinates.
//
// Parameters:
//   - width, height: the requested size; the framebuffer may be larger on high-DPI displays
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(c *config) {
		c.width, c.height = width, height
	}
}

// WithSizeLimits bounds interactive resizing.
//
// Parameters:
//   - minWidth, minHeight: the smallest allowed size
//   - maxWidth, maxHeight: the largest allowed size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(c *config) {
		c.minWidth, c.minHeight = minWidth, minHeight
		c.maxWidth, c.maxHeight = maxWidth, maxHeight
	}
}

// WithResizable controls whether the user can resize the window.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(c *config) {
		c.resizable = resizable
	}
}
