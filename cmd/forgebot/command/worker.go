package command

import (
	"fmt"

	"github.com/pixil98/go-forge/internal/bot"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	cfg.Log.Install()

	workers := service.WorkerList{}
	for i := 0; i < cfg.botCount(); i++ {
		workers[fmt.Sprintf("bot-%d", i)] = bot.NewBot(cfg.Server, cfg.botOpts()...)
	}

	return workers, nil
}
