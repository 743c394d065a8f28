package monitor

import "errors"

// Sentinel errors for session lookups.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)
