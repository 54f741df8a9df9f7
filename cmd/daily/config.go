package daily

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	StateFile   string          `envconfig:"STATE_FILE" default:"live_paper_trading.json"`
	InitialCash decimal.Decimal `envconfig:"INITIAL_CASH" default:"10000"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
