package serializer

import "errors"

var ErrInvalidDocument = errors.New("serializer: invalid scene document")
