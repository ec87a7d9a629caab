package world

import "errors"

var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerExists     = errors.New("player already exists")
	ErrBuildingNotFound = errors.New("building not found")
)
