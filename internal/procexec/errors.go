package procexec

import "errors"

// ErrCommandTimeout is returned when a command exceeds the runner's timeout.
var ErrCommandTimeout = errors.New("command timed out")
