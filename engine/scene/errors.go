package scene

import "errors"

var (
	ErrInvalidEntity  = errors.New("scene: invalid entity")
	ErrHierarchyCycle = errors.New("scene: parent would create a cycle")
)
