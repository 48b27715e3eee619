package common

import (
	"slices"
	"unsafe"
)

// Coalesce picks the first candidate that is not the zero value of T, or the zero value
// when every candidate is zero. Shader sources use it to fall back to the built-in module.
func Coalesce[T comparable](candidates ...T) T {
	var zero T
	i := slices.IndexFunc(candidates, func(c T) bool { return c != zero })
	if i < 0 {
		return zero
	}
	return candidates[i]
}

// SliceToBytes views the backing array of data as bytes for buffer uploads. The view
// aliases data, so it must not be written through or outlive it.
//
// Parameters:
//   - data: the elements to upload
//
// Returns:
//   - []byte: a view of len(data) elements, or nil when data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	size := len(data) * int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), size)
}
