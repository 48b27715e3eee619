package batch

import "errors"

var ErrInstanceCapacityExceeded = errors.New("batch: instance capacity exceeded")
