package protocol

import "errors"

// ErrInvalidRequest is returned for malformed client input. No state is changed.
var ErrInvalidRequest = errors.New("invalid request")
