package report

import "errors"

// ErrWriteReport wraps every failure to persist a report document.
var ErrWriteReport = errors.New("write report failed")
