package endpoint

import "errors"

// ErrClosed is wrapped by the TransportError returned after Close.
var ErrClosed = errors.New("endpoint closed")
