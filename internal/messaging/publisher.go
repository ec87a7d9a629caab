package messaging

import (
	"fmt"
)

// NatsBus is a Bus backed by an embedded NATS server with one subject per
// session. Every publish goes through the same client connection, so frames
// reach each subscriber in publish order.
type NatsBus struct {
	server *NatsServer
}

// NewNatsBus wraps a NatsServer for per-session frame delivery.
func NewNatsBus(server *NatsServer) *NatsBus {
	return &NatsBus{server: server}
}

func (b *NatsBus) Subscribe(id int, handler func(data []byte)) (func(), error) {
	unsub, err := b.server.Subscribe(sessionSubject(id), handler)
	if err != nil {
		return nil, fmt.Errorf("subscribing session %d: %w", id, err)
	}
	return unsub, nil
}

func (b *NatsBus) Publish(targets []int, exclude int, data []byte) error {
	var firstErr error
	for _, id := range targets {
		if id == exclude {
			continue
		}
		if err := b.server.Publish(sessionSubject(id), data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *NatsBus) Ready() <-chan struct{} {
	return b.server.Ready()
}

func sessionSubject(id int) string {
	return fmt.Sprintf("session-%d", id)
}
