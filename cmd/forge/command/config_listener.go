package command

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-forge/internal/listener"
	"github.com/pixil98/go-service"
)

const DefaultPort = 5555

type ListenerType int

const (
	ListenerTypeTcp ListenerType = iota
	ListenerTypeWebSocket
)

func (lt *ListenerType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "tcp":
		*lt = ListenerTypeTcp
	case "websocket":
		*lt = ListenerTypeWebSocket
	default:
		return fmt.Errorf("unknown listener type: %s", text)
	}
	return nil
}

type ListenerConfig struct {
	Protocol ListenerType `json:"protocol"`
	Port     uint16       `json:"port"`
	Path     string       `json:"path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Path != "" {
		if cl.Protocol != ListenerTypeWebSocket {
			el.Add(fmt.Errorf("path is only valid for websocket listeners"))
		} else if !strings.HasPrefix(cl.Path, "/") {
			el.Add(fmt.Errorf("path must start with /"))
		}
	}

	return el.Err()
}

func (cl *ListenerConfig) port() uint16 {
	if cl.Port == 0 {
		return DefaultPort
	}
	return cl.Port
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	switch cl.Protocol {
	case ListenerTypeTcp:
		return listener.NewTcpListener(cl.port(), cm), nil
	case ListenerTypeWebSocket:
		return listener.NewWebSocketListener(cl.port(), cl.Path, cm), nil
	default:
		return nil, fmt.Errorf("unknown listener type: %v", cl.Protocol)
	}
}
