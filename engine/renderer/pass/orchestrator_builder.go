package pass

import "go.uber.org/zap"

type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger used to trace layout transitions.
func WithLogger(log *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log.Named("pass")
		}
	}
}
