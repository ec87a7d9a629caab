package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-forge/internal/protocol"
	"golang.org/x/time/rate"
)

const DefaultUpdateInterval = 100 * time.Millisecond

// Handler is called with every message of the tag it was registered for,
// after the shadow state has been updated.
type Handler func(protocol.Message)

// Synchronizer keeps a local shadow of the server's world and sends the local
// player's changes to it. Received messages are processed in arrival order on
// a single goroutine.
type Synchronizer struct {
	conn   io.ReadWriteCloser
	outbox *protocol.Outbox

	updateInterval time.Duration
	outboxSize     int
	maxFrameSize   int
	limiter        *rate.Limiter

	mu       sync.RWMutex
	identity int
	shadow   ShadowState
	handlers map[protocol.Tag]Handler
	local    protocol.PlayerState
	dirty    bool
	err      error

	hasJoined bool

	wake      chan struct{}
	joined    chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to a server. Addresses starting with ws:// or wss:// are
// dialed as websockets, anything else as host:port over TCP. There is no
// retry.
func Dial(ctx context.Context, addr string, opts ...SynchronizerOpt) (*Synchronizer, error) {
	var conn io.ReadWriteCloser

	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", addr, err)
		}
		conn = protocol.NewWebSocketStream(ws)
	} else {
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", addr, err)
		}
		conn = c
	}

	return NewSynchronizer(conn, opts...), nil
}

// NewSynchronizer starts synchronizing over an established connection. The
// synchronizer owns conn from here on.
func NewSynchronizer(conn io.ReadWriteCloser, opts ...SynchronizerOpt) *Synchronizer {
	s := &Synchronizer{
		conn:           conn,
		updateInterval: DefaultUpdateInterval,
		outboxSize:     protocol.DefaultOutboxSize,
		maxFrameSize:   protocol.DefaultMaxFrameSize,
		shadow:         newShadowState(),
		handlers:       map[protocol.Tag]Handler{},
		wake:           make(chan struct{}, 1),
		joined:         make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.outbox = protocol.NewOutbox(conn, s.outboxSize)
	s.limiter = rate.NewLimiter(rate.Every(s.updateInterval), 1)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.outbox.Run(); err != nil {
			slog.Debug("writing to server", "error", err)
		}
		_ = conn.Close()
	}()
	go func() {
		defer s.wg.Done()
		s.receive()
	}()
	go func() {
		defer s.wg.Done()
		s.sendUpdates(ctx)
	}()

	return s
}

// On registers fn for tag, replacing any earlier handler.
func (s *Synchronizer) On(tag protocol.Tag, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[tag] = fn
}

// Identity returns the identity assigned by the server, or zero before Hello.
func (s *Synchronizer) Identity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identity
}

// Connected reports whether an identity has been assigned and the connection
// is still up.
func (s *Synchronizer) Connected() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	return s.Identity() != 0
}

// WaitJoined blocks until the server has assigned an identity and the
// initial snapshot has been applied.
func (s *Synchronizer) WaitJoined(ctx context.Context) error {
	select {
	case <-s.joined:
		return nil
	case <-s.done:
		if err := s.Err(); err != nil {
			return err
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the connection to the server has ended.
func (s *Synchronizer) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the connection, if any.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}

// Shadow returns a copy of the current shadow state.
func (s *Synchronizer) Shadow() ShadowState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.shadow.clone()
}

// LocalPlayer returns the latest local player state: the record the server
// started us with until UpdateLocalPlayer is first called.
func (s *Synchronizer) LocalPlayer() protocol.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.local
}

// UpdateLocalPlayer records the local player's state. Updates are coalesced
// and sent at most once per update interval; the most recent state is always
// the one sent.
func (s *Synchronizer) UpdateLocalPlayer(ps protocol.PlayerState) error {
	s.mu.Lock()
	if s.identity == 0 {
		s.mu.Unlock()
		return ErrNotJoined
	}
	s.local = ps
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *Synchronizer) SendInventory(inv protocol.Inventory) error {
	return s.send(protocol.InventorySnapshot{Inventory: inv.Clean()})
}

func (s *Synchronizer) SendBuildingPlaced(kind string, gridX, gridY int) error {
	return s.send(protocol.BuildingPlaced{Kind: kind, GridX: gridX, GridY: gridY})
}

func (s *Synchronizer) SendBuildingUpdate(index, durability int) error {
	return s.send(protocol.BuildingUpdate{Index: index, Durability: durability})
}

// SendEnemySpawned announces a new enemy. When the server mints enemy ids the
// echoed EnemySpawned carries id in its LocalId.
func (s *Synchronizer) SendEnemySpawned(id int, kind string, x, y float64) error {
	return s.send(protocol.EnemySpawned{EnemyId: id, Kind: kind, X: x, Y: y})
}

func (s *Synchronizer) SendEnemyDelta(id int, x, y float64, health int) error {
	return s.send(protocol.EnemyDelta{EnemyId: id, X: x, Y: y, Health: health})
}

func (s *Synchronizer) SendEnemyRemoved(id int) error {
	return s.send(protocol.EnemyRemoved{EnemyId: id})
}

// Close says goodbye to the server, flushes everything queued and closes the
// connection. Safe to call more than once.
func (s *Synchronizer) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

func (s *Synchronizer) send(msg protocol.Message) error {
	err := s.outbox.Send(msg)
	if errors.Is(err, protocol.ErrOutboxClosed) {
		return ErrClosed
	}
	return err
}

// sendUpdates owns the outgoing side: it paces player deltas and, once ctx
// ends, sends any pending delta followed by Goodbye and closes the outbox.
func (s *Synchronizer) sendUpdates(ctx context.Context) {
	defer func() {
		s.flushLocal(ctx)
		if id := s.Identity(); id != 0 {
			_ = s.outbox.Send(protocol.Goodbye{Identity: id})
		}
		s.outbox.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.flushLocal(ctx)
	}
}

// flushLocal sends the local player's state if it changed since the last send.
func (s *Synchronizer) flushLocal(ctx context.Context) {
	s.mu.Lock()
	id, ps, dirty := s.identity, s.local, s.dirty
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return
	}
	err := s.outbox.Send(protocol.PlayerDelta{
		Identity: id,
		X:        ps.X,
		Y:        ps.Y,
		Health:   ps.Health,
		Hunger:   ps.Hunger,
	})
	if errors.Is(err, protocol.ErrOutboxFull) {
		slog.WarnContext(ctx, "dropping player update", "identity", id)
	}
}

func (s *Synchronizer) receive() {
	err := protocol.ReadFrames(s.conn, s.maxFrameSize, s.handleFrame)

	s.mu.Lock()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		s.err = fmt.Errorf("reading from server: %w", err)
	}
	s.mu.Unlock()

	close(s.done)
}

func (s *Synchronizer) handleFrame(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		slog.Debug("dropping frame", "error", err)
		return
	}

	s.mu.Lock()
	switch m := msg.(type) {
	case protocol.Hello:
		if s.identity == 0 {
			s.identity = m.Identity
		}
	case protocol.FullStateSnapshot:
		s.shadow.apply(s.identity, msg)
		if s.identity != 0 && !s.hasJoined {
			s.local = m.Players[s.identity]
			s.hasJoined = true
			close(s.joined)
		}
	default:
		s.shadow.apply(s.identity, msg)
	}
	fn := s.handlers[msg.Tag()]
	s.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}
