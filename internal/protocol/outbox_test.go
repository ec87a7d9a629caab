package protocol

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/pixil98/go-testutil"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestOutbox_FlushesOnClose(t *testing.T) {
	var out syncBuffer
	o := NewOutbox(&out, 4)

	for _, f := range []string{"a\n", "b\n"} {
		if err := o.Enqueue([]byte(f)); err != nil {
			t.Fatalf("enqueue %q: %v", f, err)
		}
	}
	o.Close()

	err := o.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-o.Stopped()

	testutil.AssertEqual(t, "written", out.String(), "a\nb\n")
	err = o.Enqueue([]byte("c\n"))
	testutil.AssertEqual(t, "enqueue after close", errors.Is(err, ErrOutboxClosed), true)
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	var out syncBuffer
	o := NewOutbox(&out, 1)

	if err := o.Enqueue([]byte("a\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := o.Enqueue([]byte("b\n"))
	testutil.AssertEqual(t, "second", errors.Is(err, ErrOutboxFull), true)
}

func TestOutbox_Send(t *testing.T) {
	var out syncBuffer
	o := NewOutbox(&out, 1)

	err := o.Send(Heartbeat{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.Close()
	_ = o.Run()
	testutil.AssertEqual(t, "written", out.String(), `{"type":"heartbeat","data":{}}`+"\n")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestOutbox_WriteError(t *testing.T) {
	o := NewOutbox(brokenWriter{}, 1)
	_ = o.Enqueue([]byte("a\n"))

	err := o.Run()
	testutil.AssertErrorContains(t, err, "broken pipe")
}
