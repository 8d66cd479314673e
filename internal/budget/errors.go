package budget

import "errors"

// ErrInvalidBudget is returned when a session budget is set to a non-positive value.
var ErrInvalidBudget = errors.New("session budget must be a positive integer")
