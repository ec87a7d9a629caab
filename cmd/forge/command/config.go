package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-forge/internal/logging"
	"github.com/pixil98/go-forge/internal/server"
)

type Config struct {
	Listeners         []ListenerConfig   `json:"listeners"`
	MaxPlayers        int                `json:"max_players"`
	HeartbeatInterval string             `json:"heartbeat_interval"`
	TickInterval      string             `json:"tick_interval"`
	EnemyIds          server.EnemyIdMode `json:"enemy_ids"`
	OutboundQueue     int                `json:"outbound_queue"`
	World             WorldConfig        `json:"world"`
	Bus               BusConfig          `json:"bus"`
	Log               logging.Config     `json:"log"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if len(c.Listeners) == 0 {
		el.Add(fmt.Errorf("at least one listener is required"))
	}
	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	if c.MaxPlayers < 0 {
		el.Add(fmt.Errorf("max_players must not be negative"))
	}
	if c.OutboundQueue < 0 {
		el.Add(fmt.Errorf("outbound_queue must not be negative"))
	}

	el.Add(validateInterval("heartbeat_interval", c.HeartbeatInterval))
	el.Add(validateInterval("tick_interval", c.TickInterval))

	el.Add(c.World.validate())
	el.Add(c.Bus.validate())
	el.Add(c.Log.Validate())

	return el.Err()
}

// heartbeatInterval returns the configured interval or the default when unset.
func (c *Config) heartbeatInterval() time.Duration {
	return parseInterval(c.HeartbeatInterval, server.DefaultHeartbeatInterval)
}

func (c *Config) tickInterval() time.Duration {
	return parseInterval(c.TickInterval, time.Second)
}

func (c *Config) coordinatorOpts() []server.CoordinatorOpt {
	opts := []server.CoordinatorOpt{
		server.WithEnemyIdMode(c.EnemyIds),
	}
	if c.MaxPlayers != 0 {
		opts = append(opts, server.WithMaxPlayers(c.MaxPlayers))
	}
	if c.OutboundQueue != 0 {
		opts = append(opts, server.WithOutboxSize(c.OutboundQueue))
	}
	return opts
}

func validateInterval(name, s string) error {
	if s == "" {
		return nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

func parseInterval(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
