package texture

type RegistryOption func(*Registry)

// WithMaxSlots caps the number of simultaneously live slots.
//
// Parameters:
//   - n: the slot capacity; values below 1 are ignored
//
// Returns:
//   - RegistryOption: a function that sets the capacity
func WithMaxSlots(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSlots = n
		}
	}
}
