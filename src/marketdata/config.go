package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	SourceYahoo   = "yahoo"
	SourceBinance = "binance"
	// SourceAuto quotes crypto pairs on Binance and everything else on Yahoo.
	SourceAuto = "auto"
)

type Config struct {
	Source          string `envconfig:"MARKET_DATA_SOURCE" default:"yahoo"`
	BinanceEndpoint string `envconfig:"BINANCE_ENDPOINT" default:"https://api.binance.com"`
	BinanceQuote    string `envconfig:"BINANCE_QUOTE" default:"USDT"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
