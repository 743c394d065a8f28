package stream

import (
	"time"

	"github.com/okian/vigil/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBuffer sets the per-client send buffer, in messages.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithWriteTimeout bounds every write to a client.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often clients are pinged. It must stay below the pong wait.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
			if h.pongWait <= d {
				h.pongWait = d * 6 / 5
			}
		}
	}
}

// WithSessionCheck rejects subscriptions to sessions for which fn is false.
func WithSessionCheck(fn func(sessionID string) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.exists = fn
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
