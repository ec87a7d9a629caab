package client

import "errors"

var (
	ErrNotJoined = errors.New("no identity assigned yet")
	ErrClosed    = errors.New("synchronizer closed")
)
