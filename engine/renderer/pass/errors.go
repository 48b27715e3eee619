package pass

import "errors"

var (
	ErrPassActive   = errors.New("pass: rendering already active")
	ErrNoActivePass = errors.New("pass: no active rendering")
	ErrNoRecorder   = errors.New("pass: no frame attached")
	ErrNoTarget     = errors.New("pass: no color target")
)
