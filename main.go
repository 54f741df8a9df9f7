package main

import (
	"fmt"
	"os"
	"time"

	"papertrader/src/logging"
	"papertrader/src/server"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

// Standalone dashboard server. The CLI under cmd/ runs the decision cycle.
func main() {
	closer, err := logging.SetupLogger()
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up logging")
	}
	defer closer.Close()
	defer handlePanic()

	if err := server.Run(); err != nil {
		logger.WithError(err).Fatal("Failed to start dashboard server")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
