package frame

import "errors"

var (
	ErrStaleSlot                = errors.New("frame: slot is not the current frame")
	ErrFrameInProgress          = errors.New("frame: frame already begun")
	ErrNoFrame                  = errors.New("frame: no frame in progress")
	ErrInstanceCapacityExceeded = errors.New("frame: instance capacity exceeded")
	ErrViewportsExhausted       = errors.New("frame: camera uniform slots exhausted")
)
