package switchback

import "errors"

var (
	ErrBadConfig        = errors.New("bad config")
	ErrFault            = errors.New("handler fault")
	ErrInvalidState     = errors.New("invalid state")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrMissingData      = errors.New("missing data")
	ErrNotFound         = errors.New("not found")
	ErrNotValid         = errors.New("invalid")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrTimeout          = errors.New("timeout")
)
