package fusion

import "errors"

// ErrInvalidConfig is returned when a fusion configuration fails validation.
var ErrInvalidConfig = errors.New("invalid fusion config")
