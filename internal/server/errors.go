package server

import "errors"

var (
	ErrServerFull    = errors.New("server is full")
	ErrSessionClosed = errors.New("session closed")
)
