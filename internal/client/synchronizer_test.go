package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/pixil98/go-forge/internal/listener"
	"github.com/pixil98/go-forge/internal/messaging"
	"github.com/pixil98/go-forge/internal/protocol"
	"github.com/pixil98/go-forge/internal/server"
	"github.com/pixil98/go-forge/internal/world"
	"github.com/pixil98/go-testutil"
)

const testTimeout = 5 * time.Second

type testServer struct {
	addr  string
	world *world.WorldState
	coord *server.Coordinator
}

// startServer runs a coordinator behind a loopback listener for the life of
// the test. When ws is set the listener speaks websocket.
func startServer(t *testing.T, ws bool, opts ...server.CoordinatorOpt) *testServer {
	t.Helper()
	return startWorldServer(t, world.NewWorldState(), ws, opts...)
}

func startWorldServer(t *testing.T, w *world.WorldState, ws bool, opts ...server.CoordinatorOpt) *testServer {
	t.Helper()

	c := server.NewCoordinator(w, messaging.NewLocalBus(), opts...)
	cm := listener.NewConnectionManager(c)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if ws {
			_ = listener.NewWebSocketListener(0, "", cm).Serve(ctx, ln)
		} else {
			_ = listener.NewTcpListener(0, cm).Serve(ctx, ln)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	addr := ln.Addr().String()
	if ws {
		addr = "ws://" + addr + listener.DefaultWebSocketPath
	}
	return &testServer{addr: addr, world: w, coord: c}
}

// dial connects a synchronizer that reports every message it handles on the
// returned channel.
func dial(t *testing.T, srv *testServer, opts ...SynchronizerOpt) (*Synchronizer, chan protocol.Message) {
	t.Helper()

	msgs := make(chan protocol.Message, 64)
	record := func(msg protocol.Message) { msgs <- msg }
	for _, tag := range protocol.Tags {
		opts = append(opts, WithHandler(tag, record))
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	s, err := Dial(ctx, srv.addr, opts...)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.WaitJoined(ctx); err != nil {
		t.Fatalf("joining: %v", err)
	}
	return s, msgs
}

// waitFor returns the first message of type T, skipping anything else.
func waitFor[T protocol.Message](t *testing.T, msgs <-chan protocol.Message) T {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case msg := <-msgs:
			if m, ok := msg.(T); ok {
				return m
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %s", zero.Tag())
		}
	}
}

func TestSynchronizer_PlayerDeltaRelayedWithoutEcho(t *testing.T) {
	srv := startServer(t, false)
	a, aMsgs := dial(t, srv)
	b, bMsgs := dial(t, srv)
	waitFor[protocol.FullStateSnapshot](t, bMsgs)

	err := a.UpdateLocalPlayer(protocol.PlayerState{X: 10, Y: 20, Health: 90, Hunger: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := waitFor[protocol.PlayerDelta](t, bMsgs)
	testutil.AssertEqual(t, "delta", got, protocol.PlayerDelta{Identity: a.Identity(), X: 10, Y: 20, Health: 90, Hunger: 80})
	testutil.AssertEqual(t, "b shadow", b.Shadow().Players[a.Identity()], protocol.PlayerState{X: 10, Y: 20, Health: 90, Hunger: 80})

	// A's shadow never contains itself, and a heartbeat proves no echo is queued.
	srv.coord.BroadcastHeartbeat(context.Background())
	for msg := range aMsgs {
		if _, ok := msg.(protocol.PlayerDelta); ok {
			t.Fatal("sender received its own delta")
		}
		if _, ok := msg.(protocol.Heartbeat); ok {
			break
		}
	}
	_, ok := a.Shadow().Players[a.Identity()]
	testutil.AssertEqual(t, "self in shadow", ok, false)
}

func TestSynchronizer_BuildingSeenByEveryone(t *testing.T) {
	srv := startServer(t, false)
	a, aMsgs := dial(t, srv)
	b, bMsgs := dial(t, srv)

	if err := a.SendBuildingPlaced("mine", 3, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor[protocol.BuildingPlaced](t, aMsgs)
	waitFor[protocol.BuildingPlaced](t, bMsgs)

	exp := []protocol.BuildingRecord{{Kind: "mine", GridX: 3, GridY: 4}}
	testutil.AssertEqual(t, "a buildings", a.Shadow().Buildings, exp)
	testutil.AssertEqual(t, "b buildings", b.Shadow().Buildings, exp)

	c, cMsgs := dial(t, srv)
	waitFor[protocol.FullStateSnapshot](t, cMsgs)
	testutil.AssertEqual(t, "late joiner buildings", c.Shadow().Buildings, exp)
}

func TestSynchronizer_RemovedEnemyAbsentForLateJoiner(t *testing.T) {
	srv := startServer(t, false)
	a, aMsgs := dial(t, srv)

	if err := a.SendEnemySpawned(7, "zombie", 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor[protocol.EnemySpawned](t, aMsgs)
	_, ok := a.Shadow().Enemies[7]
	testutil.AssertEqual(t, "spawned", ok, true)

	if err := a.SendEnemyRemoved(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor[protocol.EnemyRemoved](t, aMsgs)

	c, cMsgs := dial(t, srv)
	waitFor[protocol.FullStateSnapshot](t, cMsgs)
	_, ok = c.Shadow().Enemies[7]
	testutil.AssertEqual(t, "late joiner enemy", ok, false)
}

func TestSynchronizer_ConfiguredEnemyHealthAgrees(t *testing.T) {
	srv := startWorldServer(t, world.NewWorldState(world.WithEnemyHealth(45)), false)
	a, aMsgs := dial(t, srv)
	b, bMsgs := dial(t, srv)

	if err := a.SendEnemySpawned(7, "zombie", 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor[protocol.EnemySpawned](t, aMsgs)
	waitFor[protocol.EnemySpawned](t, bMsgs)

	c, cMsgs := dial(t, srv)
	waitFor[protocol.FullStateSnapshot](t, cMsgs)

	stored, _ := srv.world.GetEnemy(7)
	testutil.AssertEqual(t, "stored", stored.Health, 45)
	for name, s := range map[string]*Synchronizer{"a": a, "b": b, "late joiner": c} {
		testutil.AssertEqual(t, name, s.Shadow().Enemies[7], stored)
	}
}

func TestSynchronizer_WebSocket(t *testing.T) {
	srv := startServer(t, true)
	a, aMsgs := dial(t, srv)
	b, bMsgs := dial(t, srv)

	if err := a.SendInventory(protocol.Inventory{"wood": 3, "_selected": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor[protocol.InventorySnapshot](t, aMsgs)
	waitFor[protocol.InventorySnapshot](t, bMsgs)

	testutil.AssertEqual(t, "b inventory", b.Shadow().Inventory, protocol.Inventory{"wood": 3})
	testutil.AssertEqual(t, "server inventory", srv.world.Inventory(), protocol.Inventory{"wood": 3})
}

func TestSynchronizer_UpdatesCoalesced(t *testing.T) {
	srv := startServer(t, false)
	a, _ := dial(t, srv, WithUpdateInterval(200*time.Millisecond))
	_, bMsgs := dial(t, srv)

	for i := 1; i <= 20; i++ {
		if err := a.UpdateLocalPlayer(protocol.PlayerState{X: float64(i)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The final state always arrives, and far fewer deltas than updates do.
	received := 0
	for {
		got := waitFor[protocol.PlayerDelta](t, bMsgs)
		received++
		if got.X == 20 {
			break
		}
	}
	if received > 3 {
		t.Fatalf("expected updates to be coalesced, got %d deltas", received)
	}

	ps, _ := srv.world.GetPlayer(a.Identity())
	testutil.AssertEqual(t, "stored", ps.X, 20.0)
}

func TestSynchronizer_CloseSendsGoodbye(t *testing.T) {
	srv := startServer(t, false)
	a, _ := dial(t, srv)
	b, bMsgs := dial(t, srv)
	aId := a.Identity()

	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "goodbye", waitFor[protocol.Goodbye](t, bMsgs).Identity, aId)

	_, ok := b.Shadow().Players[aId]
	testutil.AssertEqual(t, "a in b shadow", ok, false)
	_, ok = srv.world.GetPlayer(aId)
	testutil.AssertEqual(t, "a on server", ok, false)

	testutil.AssertEqual(t, "connected", a.Connected(), false)
	err := a.SendBuildingPlaced("wall", 0, 0)
	testutil.AssertEqual(t, "closed", errors.Is(err, ErrClosed), true)
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}

func TestSynchronizer_CloseFlushesPendingUpdate(t *testing.T) {
	srv := startServer(t, false)
	a, _ := dial(t, srv, WithUpdateInterval(time.Hour))
	_, bMsgs := dial(t, srv)
	aId := a.Identity()

	// The second update is held back by the pacing until Close.
	for _, x := range []float64{1, 2} {
		if err := a.UpdateLocalPlayer(protocol.PlayerState{X: x}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var last protocol.PlayerDelta
	deadline := time.After(testTimeout)
	for goodbye := false; !goodbye; {
		select {
		case msg := <-bMsgs:
			switch m := msg.(type) {
			case protocol.PlayerDelta:
				last = m
			case protocol.Goodbye:
				testutil.AssertEqual(t, "goodbye", m.Identity, aId)
				goodbye = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for goodbye")
		}
	}
	testutil.AssertEqual(t, "last delta", last, protocol.PlayerDelta{Identity: aId, X: 2})
}

func TestSynchronizer_ServerGoneEndsSession(t *testing.T) {
	client, srvConn := net.Pipe()
	s := NewSynchronizer(client)
	defer s.Close()

	frame, _ := protocol.Encode(protocol.Hello{Identity: 3})
	go func() {
		_, _ = srvConn.Write(frame)
		_ = srvConn.Close()
	}()

	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session did not end")
	}
	testutil.AssertEqual(t, "identity", s.Identity(), 3)
	testutil.AssertEqual(t, "connected", s.Connected(), false)
	if err := s.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSynchronizer_NoPlayerDeltaBeforeHello(t *testing.T) {
	client, srvConn := net.Pipe()
	defer srvConn.Close()
	s := NewSynchronizer(client)
	defer s.Close()

	err := s.UpdateLocalPlayer(protocol.PlayerState{X: 1})
	testutil.AssertEqual(t, "not joined", errors.Is(err, ErrNotJoined), true)
	testutil.AssertEqual(t, "connected", s.Connected(), false)
}

func TestDial_Failure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tests := map[string]struct {
		addr string
	}{
		"tcp":       {addr: addr},
		"websocket": {addr: "ws://" + addr + "/ws"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			_, err := Dial(ctx, tt.addr)
			testutil.AssertErrorContains(t, err, "dialing")
		})
	}
}

func TestSynchronizer_LocalPlayerFromSnapshot(t *testing.T) {
	srv := startServer(t, false)
	a, _ := dial(t, srv)

	testutil.AssertEqual(t, "starting record", a.LocalPlayer(), world.DefaultPlayer)

	if err := a.UpdateLocalPlayer(protocol.PlayerState{X: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "updated", a.LocalPlayer(), protocol.PlayerState{X: 1})
}
