package client

import (
	"time"

	"github.com/pixil98/go-forge/internal/protocol"
)

type SynchronizerOpt func(*Synchronizer)

// WithUpdateInterval sets the minimum time between two player deltas.
func WithUpdateInterval(d time.Duration) SynchronizerOpt {
	return func(s *Synchronizer) {
		s.updateInterval = d
	}
}

// WithHandler registers fn for tag before any message is received.
func WithHandler(tag protocol.Tag, fn Handler) SynchronizerOpt {
	return func(s *Synchronizer) {
		s.handlers[tag] = fn
	}
}

func WithOutboxSize(n int) SynchronizerOpt {
	return func(s *Synchronizer) {
		s.outboxSize = n
	}
}

func WithMaxFrameSize(n int) SynchronizerOpt {
	return func(s *Synchronizer) {
		s.maxFrameSize = n
	}
}
