package scripting

import "errors"

var (
	ErrScript        = errors.New("scripting: script error")
	ErrUnknownScript = errors.New("scripting: unknown script")
)
