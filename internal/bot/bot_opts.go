package bot

import "time"

type BotOpt func(*Bot)

// WithTickLength sets how often the bot moves.
func WithTickLength(d time.Duration) BotOpt {
	return func(b *Bot) {
		b.tickLength = d
	}
}

// WithBuildEvery places a building every n ticks. Zero disables building.
func WithBuildEvery(n int) BotOpt {
	return func(b *Bot) {
		b.buildEvery = n
	}
}

// WithSpawnEvery spawns an enemy every n ticks. Zero disables spawning.
func WithSpawnEvery(n int) BotOpt {
	return func(b *Bot) {
		b.spawnEvery = n
	}
}

// WithEnemyLifetime removes spawned enemies after n ticks.
func WithEnemyLifetime(n int) BotOpt {
	return func(b *Bot) {
		b.enemyLifetime = n
	}
}

func WithRadius(r float64) BotOpt {
	return func(b *Bot) {
		b.radius = r
	}
}
