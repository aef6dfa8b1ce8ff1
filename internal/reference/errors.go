package reference

import "errors"

// ErrMalformedReference is returned when an input file exists but cannot be
// read, parsed or validated. It is fatal for a grading run.
var ErrMalformedReference = errors.New("malformed reference input")
