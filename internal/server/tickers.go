package server

import (
	"context"
	"time"

	"github.com/pixil98/go-forge/internal/world"
)

const DefaultHeartbeatInterval = 5 * time.Second

// HeartbeatTicker pulses every established session. Clients are not expected
// to answer.
type HeartbeatTicker struct {
	coordinator *Coordinator
}

func NewHeartbeatTicker(c *Coordinator) *HeartbeatTicker {
	return &HeartbeatTicker{coordinator: c}
}

func (t *HeartbeatTicker) Tick(ctx context.Context) error {
	t.coordinator.BroadcastHeartbeat(ctx)
	return nil
}

// ClockTicker advances the world clock by a fixed step on every tick.
type ClockTicker struct {
	world *world.WorldState
	step  time.Duration
}

func NewClockTicker(w *world.WorldState, step time.Duration) *ClockTicker {
	return &ClockTicker{world: w, step: step}
}

func (t *ClockTicker) Tick(context.Context) error {
	t.world.Advance(t.step)
	return nil
}
