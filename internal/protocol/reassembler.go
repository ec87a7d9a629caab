package protocol

import (
	"bytes"
	"errors"
	"io"
)

const (
	DefaultMaxFrameSize = 1 << 20
	readChunkSize       = 4096
)

// Reassembler turns arbitrarily chunked stream data back into frames. It keeps
// any trailing partial frame until the rest of it arrives.
type Reassembler struct {
	buf     []byte
	maxSize int
}

func NewReassembler(maxFrameSize int) *Reassembler {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Reassembler{maxSize: maxFrameSize}
}

// Feed appends chunk to the buffer and calls emit once for every complete
// frame, in order. Frames passed to emit exclude the delimiter and are owned by
// the callee. Blank lines are skipped.
func (r *Reassembler) Feed(chunk []byte, emit func(frame []byte)) error {
	r.buf = append(r.buf, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(r.buf[start:], Delimiter)
		if i < 0 {
			break
		}
		frame := bytes.TrimRight(r.buf[start:start+i], "\r")
		start += i + 1
		if len(frame) == 0 {
			continue
		}
		emit(bytes.Clone(frame))
	}

	// Compact so the buffer only holds the partial tail.
	n := copy(r.buf, r.buf[start:])
	r.buf = r.buf[:n]

	if len(r.buf) > r.maxSize {
		r.buf = nil
		return ErrFrameTooLarge
	}
	return nil
}

// Pending returns the number of buffered bytes not yet forming a frame.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// ReadFrames reads from rd until the stream ends, emitting each complete frame
// in receipt order. A closed stream (io.EOF) is an orderly end and returns nil;
// any other read failure is returned.
func ReadFrames(rd io.Reader, maxFrameSize int, emit func(frame []byte)) error {
	r := NewReassembler(maxFrameSize)
	p := make([]byte, readChunkSize)
	for {
		n, err := rd.Read(p)
		if n > 0 {
			if ferr := r.Feed(p[:n], emit); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
