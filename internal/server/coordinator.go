package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync"

	"github.com/pixil98/go-forge/internal/messaging"
	"github.com/pixil98/go-forge/internal/protocol"
	"github.com/pixil98/go-forge/internal/world"
)

const DefaultMaxPlayers = 4

// Coordinator owns every established session and is the only writer of the
// world state. Each apply-and-broadcast step runs under a single lock, so the
// world reflects a serial history and broadcasts follow that same order.
type Coordinator struct {
	mu       sync.Mutex
	world    *world.WorldState
	bus      messaging.Bus
	sessions map[int]*Session
	nextId   int

	maxPlayers   int
	enemyIds     EnemyIdMode
	outboxSize   int
	maxFrameSize int
}

func NewCoordinator(w *world.WorldState, bus messaging.Bus, opts ...CoordinatorOpt) *Coordinator {
	c := &Coordinator{
		world:        w,
		bus:          bus,
		sessions:     map[int]*Session{},
		nextId:       1,
		maxPlayers:   DefaultMaxPlayers,
		enemyIds:     EnemyIdsClient,
		outboxSize:   protocol.DefaultOutboxSize,
		maxFrameSize: protocol.DefaultMaxFrameSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Ready is closed once the coordinator can accept connections.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.bus.Ready()
}

// SessionCount returns the number of established sessions.
func (c *Coordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sessions)
}

// Serve runs a connection from accept to disconnect. It returns once the
// connection is closed; a nil error means the peer went away in an orderly
// fashion.
func (c *Coordinator) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	s, err := c.Join(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := s.outbox.Run(); err != nil {
			slog.DebugContext(ctx, "writing to session", append(s.logAttrs(), "error", err)...)
		}
		// Once nothing more will be written, unblock the reader.
		_ = conn.Close()
	}()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	readErr := protocol.ReadFrames(conn, c.maxFrameSize, func(frame []byte) {
		c.handleFrame(ctx, s, frame)
	})

	close(stop)
	c.Leave(ctx, s)
	<-writerDone

	if readErr != nil && !errors.Is(readErr, net.ErrClosed) && !errors.Is(readErr, io.ErrClosedPipe) {
		return fmt.Errorf("reading session %d: %w", s.id, readErr)
	}
	return nil
}

// Join establishes a new session on conn: it assigns a fresh identity, adds
// the default player record and queues Hello followed by a full snapshot.
// Connections beyond the player cap are refused with ErrServerFull and leave
// no trace in the world.
func (c *Coordinator) Join(ctx context.Context, conn io.ReadWriteCloser) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxPlayers > 0 && len(c.sessions) >= c.maxPlayers {
		return nil, ErrServerFull
	}

	id := c.nextId
	c.nextId++
	s := newSession(id, conn, c.outboxSize)

	unsub, err := c.bus.Subscribe(id, func(frame []byte) { s.deliver(ctx, frame) })
	if err != nil {
		return nil, fmt.Errorf("joining session %d: %w", id, err)
	}
	s.unsubscribe = unsub

	if _, err := c.world.AddPlayer(id); err != nil {
		unsub()
		return nil, fmt.Errorf("joining session %d: %w", id, err)
	}

	// Nothing can be broadcast while we hold the lock, so these two frames
	// are the first the session sees.
	for _, msg := range []protocol.Message{protocol.Hello{Identity: id}, c.world.Snapshot()} {
		if err := s.send(msg); err != nil {
			unsub()
			_ = c.world.RemovePlayer(id)
			return nil, fmt.Errorf("joining session %d: %w", id, err)
		}
	}

	c.sessions[id] = s
	slog.InfoContext(ctx, "player connected", append(s.logAttrs(), "players", len(c.sessions), "max_players", c.maxPlayers)...)

	return s, nil
}

// Leave moves a session to its terminal state: its player record is removed,
// it stops receiving frames and every remaining session is told it left.
// Calling Leave more than once is a no-op.
func (c *Coordinator) Leave(ctx context.Context, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.leaveLocked(ctx, s)
}

func (c *Coordinator) leaveLocked(ctx context.Context, s *Session) {
	if !s.active {
		return
	}
	s.active = false

	delete(c.sessions, s.id)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if err := c.world.RemovePlayer(s.id); err != nil {
		slog.WarnContext(ctx, "removing player", append(s.logAttrs(), "error", err)...)
	}
	s.outbox.Close()

	c.broadcastLocked(ctx, protocol.Goodbye{Identity: s.id}, 0)

	slog.InfoContext(ctx, "player disconnected", append(s.logAttrs(), "players", len(c.sessions))...)
}

func (c *Coordinator) handleFrame(ctx context.Context, s *Session, frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		slog.DebugContext(ctx, "dropping frame", append(s.logAttrs(), "error", err)...)
		return
	}

	if err := c.Apply(ctx, s, msg); err != nil && !errors.Is(err, ErrSessionClosed) {
		slog.WarnContext(ctx, "applying message", append(s.logAttrs(), "tag", msg.Tag(), "error", err)...)
	}
}

// Apply validates msg from s against the world, mutates it and broadcasts
// the result. Messages from a session that already left are refused with
// ErrSessionClosed.
func (c *Coordinator) Apply(ctx context.Context, s *Session, msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !s.active {
		return ErrSessionClosed
	}

	switch m := msg.(type) {
	case protocol.PlayerDelta:
		// The sender's identity is authoritative, not the one in the payload.
		m.Identity = s.id
		if err := c.world.SetPlayer(s.id, m.State()); err != nil {
			return fmt.Errorf("updating player: %w", err)
		}
		c.broadcastLocked(ctx, m, s.id)

	case protocol.InventorySnapshot:
		c.world.SetInventory(m.Inventory)
		c.broadcastLocked(ctx, protocol.InventorySnapshot{Inventory: m.Inventory.Clean()}, 0)

	case protocol.BuildingPlaced:
		c.world.AddBuilding(m.Record())
		c.broadcastLocked(ctx, m, 0)

	case protocol.BuildingUpdate:
		if err := c.world.UpdateBuilding(m.Index, m.Durability); err != nil {
			return fmt.Errorf("updating building %d: %w", m.Index, err)
		}
		c.broadcastLocked(ctx, m, s.id)

	case protocol.EnemySpawned:
		c.spawnEnemyLocked(ctx, s, m)

	case protocol.EnemyDelta:
		if !c.world.UpdateEnemy(m.EnemyId, m.X, m.Y, m.Health) {
			slog.DebugContext(ctx, "update for unknown enemy", append(s.logAttrs(), "enemy_id", m.EnemyId)...)
			return nil
		}
		c.broadcastLocked(ctx, m, s.id)

	case protocol.EnemyRemoved:
		c.world.RemoveEnemy(m.EnemyId)
		c.broadcastLocked(ctx, m, 0)

	case protocol.Heartbeat:

	case protocol.Goodbye:
		c.leaveLocked(ctx, s)

	default:
		slog.DebugContext(ctx, "ignoring server-only message", append(s.logAttrs(), "tag", msg.Tag())...)
	}

	return nil
}

func (c *Coordinator) spawnEnemyLocked(ctx context.Context, s *Session, m protocol.EnemySpawned) {
	switch c.enemyIds {
	case EnemyIdsServer:
		localId := m.EnemyId
		m.EnemyId = c.world.MintEnemyId()
		m.LocalId = localId
	default:
		m.LocalId = 0
	}

	if c.world.SpawnEnemy(m.EnemyId, m.Kind, m.X, m.Y) {
		slog.WarnContext(ctx, "enemy id collision, overwriting", append(s.logAttrs(), "enemy_id", m.EnemyId)...)
	}
	if e, ok := c.world.GetEnemy(m.EnemyId); ok {
		m.Health = e.Health
	}
	c.broadcastLocked(ctx, m, 0)
}

// BroadcastHeartbeat sends a liveness pulse to every established session.
func (c *Coordinator) BroadcastHeartbeat(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.broadcastLocked(ctx, protocol.Heartbeat{}, 0)
}

// broadcastLocked publishes msg to every established session except exclude.
// Callers must hold c.mu.
func (c *Coordinator) broadcastLocked(ctx context.Context, msg protocol.Message, exclude int) {
	if len(c.sessions) == 0 {
		return
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		slog.ErrorContext(ctx, "encoding broadcast", "tag", msg.Tag(), "error", err)
		return
	}

	targets := slices.Sorted(maps.Keys(c.sessions))
	if err := c.bus.Publish(targets, exclude, frame); err != nil {
		slog.WarnContext(ctx, "publishing broadcast", "tag", msg.Tag(), "error", err)
	}
}
