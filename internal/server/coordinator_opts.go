package server

type CoordinatorOpt func(*Coordinator)

// WithMaxPlayers caps the number of established sessions.
func WithMaxPlayers(n int) CoordinatorOpt {
	return func(c *Coordinator) {
		c.maxPlayers = n
	}
}

func WithEnemyIdMode(m EnemyIdMode) CoordinatorOpt {
	return func(c *Coordinator) {
		c.enemyIds = m
	}
}

// WithOutboxSize sets how many frames may wait for a slow session before new
// ones are dropped.
func WithOutboxSize(n int) CoordinatorOpt {
	return func(c *Coordinator) {
		c.outboxSize = n
	}
}

func WithMaxFrameSize(n int) CoordinatorOpt {
	return func(c *Coordinator) {
		c.maxFrameSize = n
	}
}
