package protocol

import "errors"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrFrameTooLarge  = errors.New("frame exceeds maximum size")
	ErrOutboxFull     = errors.New("outbox full")
	ErrOutboxClosed   = errors.New("outbox closed")
)
