package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/pixil98/go-forge/internal/server"
)

// SessionServer runs an accepted connection for its whole lifetime.
type SessionServer interface {
	Serve(ctx context.Context, conn io.ReadWriteCloser) error
	Ready() <-chan struct{}
}

type ConnectionManager struct {
	server SessionServer
}

func NewConnectionManager(s SessionServer) *ConnectionManager {
	return &ConnectionManager{
		server: s,
	}
}

// WaitReady blocks until the server can take connections or ctx ends.
func (m *ConnectionManager) WaitReady(ctx context.Context) error {
	select {
	case <-m.server.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriteCloser) {
	err := m.server.Serve(ctx, conn)
	switch {
	case err == nil:
	case errors.Is(err, server.ErrServerFull):
		slog.InfoContext(ctx, "rejecting connection", "reason", err)
	default:
		slog.WarnContext(ctx, "player session", "error", err)
	}
}
