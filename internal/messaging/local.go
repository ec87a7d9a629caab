package messaging

import (
	"fmt"
	"sync"
)

// LocalBus is an in-process Bus. Handlers run synchronously on the publishing
// goroutine, so delivery order per session follows publish order.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int]func([]byte)
	nextId map[int]uint64
	ready  chan struct{}
}

func NewLocalBus() *LocalBus {
	ready := make(chan struct{})
	close(ready)
	return &LocalBus{
		subs:   map[int]func([]byte){},
		nextId: map[int]uint64{},
		ready:  ready,
	}
}

func (b *LocalBus) Subscribe(id int, handler func(data []byte)) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("subscribing session %d: nil handler", id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextId[id]++
	gen := b.nextId[id]
	b.subs[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// Only drop the handler this call registered.
		if b.nextId[id] == gen {
			delete(b.subs, id)
		}
	}, nil
}

func (b *LocalBus) Publish(targets []int, exclude int, data []byte) error {
	b.mu.RLock()
	handlers := make([]func([]byte), 0, len(targets))
	for _, id := range targets {
		if id == exclude {
			continue
		}
		if h, ok := b.subs[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (b *LocalBus) Ready() <-chan struct{} {
	return b.ready
}
