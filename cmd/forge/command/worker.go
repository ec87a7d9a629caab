package command

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-forge/internal/driver"
	"github.com/pixil98/go-forge/internal/listener"
	"github.com/pixil98/go-forge/internal/messaging"
	"github.com/pixil98/go-forge/internal/server"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	cfg.Log.Install()

	workers := service.WorkerList{}

	// Pick the broadcast bus
	var bus messaging.Bus
	switch cfg.Bus.Type {
	case BusTypeNats:
		natsServer, err := cfg.Bus.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = natsServer
		bus = messaging.NewNatsBus(natsServer)
	default:
		bus = messaging.NewLocalBus()
	}

	w := cfg.World.buildWorld()
	coordinator := server.NewCoordinator(w, bus, cfg.coordinatorOpts()...)
	cm := listener.NewConnectionManager(coordinator)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lw, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lw
	}
	workers["listeners"] = &listeners

	// The world clock and the heartbeat run on their own cadence
	workers["clock"] = driver.NewDriver(
		[]driver.Ticker{server.NewClockTicker(w, cfg.tickInterval())},
		driver.WithTickLength(cfg.tickInterval()),
	)
	workers["heartbeat"] = driver.NewDriver(
		[]driver.Ticker{server.NewHeartbeatTicker(coordinator)},
		driver.WithTickLength(cfg.heartbeatInterval()),
	)

	slog.Info("server configured",
		"listeners", len(cfg.Listeners),
		"max_players", cfg.MaxPlayers,
		"enemy_ids", cfg.EnemyIds,
		"bus", cfg.Bus.Type,
	)

	return workers, nil
}
