package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-forge/internal/messaging"
)

type BusType int

const (
	BusTypeLocal BusType = iota
	BusTypeNats
)

func (bt *BusType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "local":
		*bt = BusTypeLocal
	case "nats":
		*bt = BusTypeNats
	default:
		return fmt.Errorf("unknown bus type: %s", text)
	}
	return nil
}

func (bt BusType) String() string {
	switch bt {
	case BusTypeNats:
		return "nats"
	default:
		return "local"
	}
}

type BusConfig struct {
	Type BusType    `json:"type"`
	Nats NatsConfig `json:"nats"`
}

func (c *BusConfig) validate() error {
	if c.Type != BusTypeNats {
		return nil
	}
	return c.Nats.validate()
}

type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("port %d out of range", n.Port))
	}

	return el.Err()
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if c.StartTimeout != "" {
		d, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}
