package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-forge/internal/protocol"
	"github.com/pixil98/go-forge/internal/world"
)

type WorldConfig struct {
	StartingInventory protocol.Inventory    `json:"starting_inventory,omitempty"`
	DefaultPlayer     *protocol.PlayerState `json:"default_player,omitempty"`
	EnemyHealth       int                   `json:"enemy_health,omitempty"`
}

func (c *WorldConfig) validate() error {
	el := errors.NewErrorList()

	for k, v := range c.StartingInventory {
		if v < 0 {
			el.Add(fmt.Errorf("starting_inventory %s must not be negative", k))
		}
	}
	if c.EnemyHealth < 0 {
		el.Add(fmt.Errorf("enemy_health must not be negative"))
	}

	return el.Err()
}

func (c *WorldConfig) buildWorld() *world.WorldState {
	var opts []world.WorldStateOpt
	if c.StartingInventory != nil {
		opts = append(opts, world.WithStartingInventory(c.StartingInventory))
	}
	if c.DefaultPlayer != nil {
		opts = append(opts, world.WithDefaultPlayer(*c.DefaultPlayer))
	}
	if c.EnemyHealth != 0 {
		opts = append(opts, world.WithEnemyHealth(c.EnemyHealth))
	}

	return world.NewWorldState(opts...)
}
