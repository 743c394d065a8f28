package worker

import (
	"github.com/okian/vigil/pkg/logger"
)

// Option configures a PartitionWorker.
type Option func(*PartitionWorker)

// WithName names the worker in its logs, typically after its partition.
func WithName(name string) Option {
	return func(w *PartitionWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the logger the worker reports processing errors to.
func WithLogger(l logger.Logger) Option {
	return func(w *PartitionWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
