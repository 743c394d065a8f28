package queue

import "errors"

// Sentinel errors returned by Partitioned.Enqueue.
var (
	ErrFull   = errors.New("queue full")
	ErrClosed = errors.New("queue closed")
)
