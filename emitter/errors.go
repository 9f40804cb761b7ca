package emitter

import "errors"

// Sentinel errors
var (
	ErrUnsupportedNode = errors.New("unsupported node")
	ErrUnknownMode     = errors.New("unknown emit mode")
)
