package engine

import "errors"

var ErrRunning = errors.New("engine: already running")
