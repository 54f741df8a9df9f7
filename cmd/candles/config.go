package candles

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Assets []string `envconfig:"ASSETS" default:"BTC-USD,ETH-USD,SPY,GC=F"`
	// Days is how far back to backfill when a symbol has no stored candles yet.
	Days     int  `envconfig:"CANDLE_DAYS" default:"365"`
	AutoMode bool `envconfig:"AUTO_MODE" default:"true"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
