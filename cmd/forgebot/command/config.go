package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-forge/internal/bot"
	"github.com/pixil98/go-forge/internal/logging"
)

type Config struct {
	// Server is host:port for TCP or a ws:// URL.
	Server        string         `json:"server"`
	Bots          int            `json:"bots"`
	TickInterval  string         `json:"tick_interval"`
	BuildEvery    *int           `json:"build_every,omitempty"`
	SpawnEvery    *int           `json:"spawn_every,omitempty"`
	EnemyLifetime *int           `json:"enemy_lifetime,omitempty"`
	Log           logging.Config `json:"log"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.Server == "" {
		el.Add(fmt.Errorf("server is required"))
	}
	if c.Bots < 0 {
		el.Add(fmt.Errorf("bots must not be negative"))
	}
	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("tick_interval must be positive"))
		}
	}
	for name, v := range map[string]*int{
		"build_every":    c.BuildEvery,
		"spawn_every":    c.SpawnEvery,
		"enemy_lifetime": c.EnemyLifetime,
	} {
		if v != nil && *v < 0 {
			el.Add(fmt.Errorf("%s must not be negative", name))
		}
	}

	el.Add(c.Log.Validate())

	return el.Err()
}

func (c *Config) botCount() int {
	if c.Bots == 0 {
		return 1
	}
	return c.Bots
}

func (c *Config) botOpts() []bot.BotOpt {
	var opts []bot.BotOpt
	if d, err := time.ParseDuration(c.TickInterval); err == nil && d > 0 {
		opts = append(opts, bot.WithTickLength(d))
	}
	if c.BuildEvery != nil {
		opts = append(opts, bot.WithBuildEvery(*c.BuildEvery))
	}
	if c.SpawnEvery != nil {
		opts = append(opts, bot.WithSpawnEvery(*c.SpawnEvery))
	}
	if c.EnemyLifetime != nil {
		opts = append(opts, bot.WithEnemyLifetime(*c.EnemyLifetime))
	}
	return opts
}
