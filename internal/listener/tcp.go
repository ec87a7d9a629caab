package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

type TcpListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTcpListener(port uint16, cm *ConnectionManager) *TcpListener {
	return &TcpListener{
		port: port,
		cm:   cm,
	}
}

func (l *TcpListener) Start(ctx context.Context) error {
	// Don't take connections before the bus can deliver to them.
	if err := l.cm.WaitReady(ctx); err != nil {
		return nil
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}

	slog.InfoContext(ctx, "listening for tcp", "port", l.port)

	return l.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled, then closes
// every open session and waits for them to finish.
func (l *TcpListener) Serve(ctx context.Context, listener net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()
	var wg sync.WaitGroup

	// Close the listener when the parent context is canceled
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Check if shutdown was requested
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				cancelConns()
				wg.Wait()
				return fmt.Errorf("accepting tcp connection: %w", err)
			}
			slog.ErrorContext(ctx, "accepting tcp connection", "error", err)
			continue
		}

		slog.DebugContext(ctx, "tcp connection accepted", "remote", conn.RemoteAddr())

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.cm.AcceptConnection(connCtx, conn)
		}()
	}
}
