package messaging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func startNats(t *testing.T) *NatsServer {
	t.Helper()

	s, err := NewNatsServer(WithPort(-1), WithStartTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("creating nats server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("nats server exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for nats server")
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer()
	if err != nil {
		t.Fatalf("creating nats server: %v", err)
	}

	_, err = s.Subscribe("x", func([]byte) {})
	testutil.AssertErrorContains(t, err, "not started")

	err = s.Publish("x", nil)
	testutil.AssertErrorContains(t, err, "not started")
}

func TestNatsBus_PublishExcludes(t *testing.T) {
	bus := NewNatsBus(startNats(t))

	got := map[int]chan string{1: make(chan string, 10), 2: make(chan string, 10), 3: make(chan string, 10)}
	for id, ch := range got {
		_, err := bus.Subscribe(id, func(data []byte) { ch <- string(data) })
		if err != nil {
			t.Fatalf("subscribing %d: %v", id, err)
		}
	}

	err := bus.Publish([]int{1, 2, 3}, 2, []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []int{1, 3} {
		select {
		case msg := <-got[id]:
			testutil.AssertEqual(t, fmt.Sprintf("session %d", id), msg, "hello")
		case <-time.After(5 * time.Second):
			t.Fatalf("session %d never received frame", id)
		}
	}

	// Flush a marker through the excluded session's subject to prove the
	// earlier frame was never queued for it.
	_ = bus.Publish([]int{2}, 0, []byte("marker"))
	select {
	case msg := <-got[2]:
		testutil.AssertEqual(t, "excluded session", msg, "marker")
	case <-time.After(5 * time.Second):
		t.Fatal("marker never arrived")
	}
}

func TestNatsBus_OrderPerSession(t *testing.T) {
	bus := NewNatsBus(startNats(t))

	ch := make(chan string, 100)
	unsub, err := bus.Subscribe(1, func(data []byte) { ch <- string(data) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unsub()

	var exp []string
	for i := 0; i < 50; i++ {
		frame := fmt.Sprintf("frame-%d", i)
		exp = append(exp, frame)
		if err := bus.Publish([]int{1}, 0, []byte(frame)); err != nil {
			t.Fatalf("publishing: %v", err)
		}
	}

	var got []string
	for len(got) < len(exp) {
		select {
		case msg := <-ch:
			got = append(got, msg)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d frames", len(got), len(exp))
		}
	}
	testutil.AssertEqual(t, "order", got, exp)
}
