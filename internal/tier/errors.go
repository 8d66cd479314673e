package tier

import "errors"

// ErrInvalidTier is returned when an unrecognized tier name is set explicitly.
var ErrInvalidTier = errors.New("invalid skill tier")
