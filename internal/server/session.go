package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"
	"github.com/pixil98/go-forge/internal/protocol"
)

// Session is one established connection. Its active flag and subscription are
// guarded by the owning Coordinator's lock.
type Session struct {
	id     int
	trace  string
	remote string
	conn   io.ReadWriteCloser
	outbox *protocol.Outbox

	active      bool
	unsubscribe func()
}

func newSession(id int, conn io.ReadWriteCloser, outboxSize int) *Session {
	s := &Session{
		id:     id,
		trace:  uuid.New().String(),
		conn:   conn,
		outbox: protocol.NewOutbox(conn, outboxSize),
		active: true,
	}
	if ra, ok := conn.(interface{ RemoteAddr() net.Addr }); ok && ra.RemoteAddr() != nil {
		s.remote = ra.RemoteAddr().String()
	}
	return s
}

// Id returns the identity assigned to the session.
func (s *Session) Id() int {
	return s.id
}

// deliver queues an encoded frame, dropping it if the peer has fallen behind.
func (s *Session) deliver(ctx context.Context, frame []byte) {
	err := s.outbox.Enqueue(frame)
	if errors.Is(err, protocol.ErrOutboxFull) {
		slog.WarnContext(ctx, "dropping frame for slow session", s.logAttrs()...)
	}
}

func (s *Session) send(msg protocol.Message) error {
	return s.outbox.Send(msg)
}

func (s *Session) logAttrs() []any {
	attrs := []any{"session", s.id, "trace", s.trace}
	if s.remote != "" {
		attrs = append(attrs, "remote", s.remote)
	}
	return attrs
}
