package asset

import "go.uber.org/zap"

type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
//
// Parameters:
//   - log: the logger; nil keeps the no-op default
//
// Returns:
//   - ManagerOption: a function that sets the logger
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log.Named("asset")
		}
	}
}

// WithMaterialDropHook registers fn to run when a material's last reference is released,
// after its texture references are dropped. The renderer uses it to evict the material's
// pipeline. fn may run on any goroutine that releases a material.
//
// Parameters:
//   - fn: receives the ID of the dropped material
//
// Returns:
//   - ManagerOption: a function that registers the hook
func WithMaterialDropHook(fn func(materialID uint64)) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.materialDropped = append(m.materialDropped, fn)
		}
	}
}
