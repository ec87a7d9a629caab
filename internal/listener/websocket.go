package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-forge/internal/protocol"
)

const DefaultWebSocketPath = "/ws"

type WebSocketListener struct {
	port     uint16
	path     string
	cm       *ConnectionManager
	upgrader websocket.Upgrader
}

func NewWebSocketListener(port uint16, path string, cm *ConnectionManager) *WebSocketListener {
	if path == "" {
		path = DefaultWebSocketPath
	}

	return &WebSocketListener{
		port: port,
		path: path,
		cm:   cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Accept any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (l *WebSocketListener) Start(ctx context.Context) error {
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

	slog.InfoContext(ctx, "listening for websocket", "port", l.port, "path", l.path)

	return l.Serve(ctx, listener)
}

// Serve upgrades requests on the listener's path until ctx is canceled, then
// closes every open session and waits for them to finish.
func (l *WebSocketListener) Serve(ctx context.Context, listener net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()
	var sessions sessionTracker

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		if !sessions.add() {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		defer sessions.done()

		ws, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already answered the request.
			slog.DebugContext(ctx, "websocket upgrade", "remote", r.RemoteAddr, "error", err)
			return
		}
		ws.SetReadLimit(protocol.DefaultMaxFrameSize)

		l.cm.AcceptConnection(connCtx, protocol.NewWebSocketStream(ws))
	})

	svr := &http.Server{Handler: mux}

	// done signals that Serve is returning (either success or failure)
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			svr.Close()
		case <-done:
		}
	}()

	err := svr.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		// Upgraded connections are hijacked and outlive the http server.
		cancelConns()
		sessions.closeAndWait()
		return nil
	}
	return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
}

// sessionTracker counts in-flight upgrade handlers. Once closed it refuses new
// ones, so handlers the http server is still dispatching cannot race the wait.
type sessionTracker struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (t *sessionTracker) add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *sessionTracker) done() {
	t.wg.Done()
}

func (t *sessionTracker) closeAndWait() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.wg.Wait()
}
