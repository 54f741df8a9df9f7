package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"papertrader/cmd/candles"
	"papertrader/cmd/daily"
	"papertrader/src/dashboard"
	"papertrader/src/database"
	"papertrader/src/engine"
	"papertrader/src/logging"
	"papertrader/src/marketdata"
	"papertrader/src/repository"
	"papertrader/src/risk"
	"papertrader/src/server"
	"papertrader/src/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

var logFile io.Closer

func main() {
	app := cli.NewApp()
	app.Name = "papertrader"
	app.Usage = "Daily breakout paper-trading bot"
	app.Version = Version

	app.Before = func(_ *cli.Context) error {
		var err error
		logFile, err = logging.SetupLogger()
		return err
	}
	app.After = func(_ *cli.Context) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	app.Commands = []cli.Command{
		runCMD,
		statusCMD,
		serveCMD,
		candlesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run one decision cycle",
		Action:      runAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Load the portfolio, evaluate exits then entries, persist and exit`,
	}
	statusCMD = cli.Command{
		Name:        "status",
		Usage:       "print the portfolio snapshot",
		Action:      statusAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Print cash, positions and realized PnL without changing anything`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the read-only dashboard server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve /healthcheck, /portfolio, /history and /trades`,
	}
	candlesCMD = cli.Command{
		Name:        "candles",
		Usage:       "backfill daily candles into the database",
		Action:      candlesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch daily candles for the configured assets and upsert them`,
	}
)

func runAction(_ *cli.Context) error {

	logrus.Info("Starting decision cycle CMD")

	cycle := &daily.Daily{Log: logrus.WithField("cmd", "run")}
	if err := cycle.Start(); err != nil {
		logrus.WithError(err).Error("Decision cycle failed")
		return err
	}

	return nil
}

func statusAction(_ *cli.Context) error {
	log := logrus.WithField("cmd", "status")

	if err := database.InitMainDB(); err != nil {
		log.WithError(err).Error("Failed to connect to database")
		return err
	}

	state, err := store.NewFileStore(daily.GetConfig().StateFile, log).Load()
	if err != nil {
		log.WithError(err).Error("Failed to load portfolio state")
		return err
	}

	var marks map[string]decimal.Decimal
	if database.MainDB != nil {
		assets := make([]string, 0, len(state.Positions))
		for asset := range state.Positions {
			assets = append(assets, asset)
		}
		if marks, err = repository.NewOHLCVRepository().LatestCloses(context.Background(), assets); err != nil {
			log.WithError(err).Warn("Failed to load marks, valuing at entry")
			marks = nil
		}
	}

	cfg := engine.GetConfig()
	snap := dashboard.Build(state, marks, risk.MaxPositions(cfg.MaxGlobalRisk, cfg.RiskPerTrade))
	fmt.Print(dashboard.Render(snap))
	return nil
}

func serveAction(_ *cli.Context) error {

	logrus.Info("Starting dashboard server CMD")

	return server.Run()
}

// candlesAction backfills the daily candle cache used for marks and outage fallback.
func candlesAction(_ *cli.Context) error {

	logrus.Info("Starting daily candles CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	log := logrus.WithField("cmd", "candles")
	provider, err := marketdata.New(log, marketdata.GetConfig())
	if err != nil {
		return err
	}

	backfill := &candles.Candles{
		Log:      log,
		DB:       database.MainDB,
		Provider: provider,
	}
	if err := backfill.Start(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting candles cmd")
		return err
	}

	return nil
}
