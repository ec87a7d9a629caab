package world

import "github.com/pixil98/go-forge/internal/protocol"

type WorldStateOpt func(*WorldState)

// WithStartingInventory replaces the shared inventory a new world starts with.
func WithStartingInventory(inv protocol.Inventory) WorldStateOpt {
	return func(w *WorldState) {
		w.inventory = inv.Clean()
	}
}

// WithDefaultPlayer sets the record inserted for every newly joined player.
func WithDefaultPlayer(ps protocol.PlayerState) WorldStateOpt {
	return func(w *WorldState) {
		w.defaultPlayer = ps
	}
}

// WithEnemyHealth sets the health given to newly spawned enemies.
func WithEnemyHealth(health int) WorldStateOpt {
	return func(w *WorldState) {
		w.enemyHealth = health
	}
}
