package candidate

import "errors"

// Sentinel error kinds carried by call outcomes.
var (
	ErrStatus       = errors.New("unexpected status")
	ErrDecode       = errors.New("undecodable body")
	ErrContentType  = errors.New("unexpected content type")
	ErrBodyTooLarge = errors.New("response body too large")
)
