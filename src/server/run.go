package server

import (
	"time"

	"papertrader/src/database"
	"papertrader/src/engine"
	"papertrader/src/repository"
	"papertrader/src/risk"
	"papertrader/src/store"

	logger "github.com/sirupsen/logrus"
)

// Run wires the dashboard from the environment and blocks until shutdown.
func Run() error {
	cfg := GetConfig()
	engineCfg := engine.GetConfig()

	if err := database.InitMainDB(); err != nil {
		return err
	}

	deps := Deps{
		State:        store.NewFileStore(cfg.StateFile, logger.WithField("component", "store")),
		MaxPositions: risk.MaxPositions(engineCfg.MaxGlobalRisk, engineCfg.RiskPerTrade),
	}
	if database.MainDB != nil {
		deps.Candles = repository.NewOHLCVRepository()
		deps.Journal = repository.NewJournalRepository("")
	}

	StartServer(cfg.Port, NewRouter(deps), time.Duration(cfg.ShutdownTimeout)*time.Second)
	return nil
}
