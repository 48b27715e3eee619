package renderer

import "errors"

var (
	ErrNoFrame     = errors.New("renderer: no frame in progress")
	ErrFrameActive = errors.New("renderer: frame already in progress")
)
