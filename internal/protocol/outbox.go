package protocol

import (
	"io"
	"sync"
)

const DefaultOutboxSize = 256

// Outbox is a bounded queue of encoded frames drained by a single writer.
// Enqueue never blocks, so a slow peer cannot stall whoever is producing frames.
type Outbox struct {
	w     io.Writer
	queue chan []byte

	closeOnce sync.Once
	closing   chan struct{}
	stopped   chan struct{}
}

func NewOutbox(w io.Writer, size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{
		w:       w,
		queue:   make(chan []byte, size),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Enqueue queues frame for writing. When the queue is full or the outbox is
// closed the frame is dropped and ErrOutboxFull or ErrOutboxClosed returned.
func (o *Outbox) Enqueue(frame []byte) error {
	select {
	case <-o.closing:
		return ErrOutboxClosed
	default:
	}

	select {
	case o.queue <- frame:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Send encodes msg and enqueues it.
func (o *Outbox) Send(msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	return o.Enqueue(frame)
}

// Run writes queued frames until Close is called or a write fails. Frames
// already queued when Close is called are flushed before Run returns.
func (o *Outbox) Run() error {
	defer close(o.stopped)

	for {
		select {
		case frame := <-o.queue:
			if _, err := o.w.Write(frame); err != nil {
				return err
			}
		case <-o.closing:
			return o.flush()
		}
	}
}

func (o *Outbox) flush() error {
	for {
		select {
		case frame := <-o.queue:
			if _, err := o.w.Write(frame); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Close stops accepting frames and lets Run finish. Safe to call repeatedly.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		close(o.closing)
	})
}

// Stopped is closed once Run has returned.
func (o *Outbox) Stopped() <-chan struct{} {
	return o.stopped
}
