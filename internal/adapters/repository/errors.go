package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrSessionEnded = errors.New("session already ended")
	ErrInvalidLimit = errors.New("invalid limit")
)
