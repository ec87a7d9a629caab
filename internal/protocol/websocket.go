package protocol

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// WebSocketStream exposes a websocket connection as a byte stream so it can be
// served by the same framing as a raw TCP connection. Every Write is sent as
// one text message. Reads run the messages back to back, and a message whose
// last frame lacks a delimiter is terminated with one.
type WebSocketStream struct {
	ws *websocket.Conn

	rd      io.Reader
	last    byte
	pending bool

	wmu       sync.Mutex
	closeOnce sync.Once
}

func NewWebSocketStream(ws *websocket.Conn) *WebSocketStream {
	return &WebSocketStream{ws: ws, last: Delimiter}
}

func (s *WebSocketStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if s.pending {
			s.pending = false
			s.last = Delimiter
			p[0] = Delimiter
			return 1, nil
		}

		if s.rd == nil {
			_, rd, err := s.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.rd = rd
		}

		n, err := s.rd.Read(p)
		if n > 0 {
			s.last = p[n-1]
		}
		if errors.Is(err, io.EOF) {
			s.rd = nil
			s.pending = s.last != Delimiter
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *WebSocketStream) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close message to the peer and tears down the connection. It
// is safe to call more than once.
func (s *WebSocketStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = s.ws.Close()
	})
	return err
}

func (s *WebSocketStream) RemoteAddr() net.Addr {
	return s.ws.RemoteAddr()
}
