package app

import "errors"

// Sentinel error kinds for this package.
var (
	ErrPanic        = errors.New("grader panicked")
	ErrLoadEvents   = errors.New("load events")
	ErrLoadBaseline = errors.New("load reference statistics")
)
