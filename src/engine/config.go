package engine

import (
	"fmt"

	"papertrader/src/indicators"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Assets         []string        `envconfig:"ASSETS" default:"BTC-USD,ETH-USD,SPY,GC=F"`
	RiskPerTrade   decimal.Decimal `envconfig:"RISK_PER_TRADE" default:"0.02"`
	MaxGlobalRisk  decimal.Decimal `envconfig:"MAX_GLOBAL_RISK" default:"0.06"`
	ADXThreshold   decimal.Decimal `envconfig:"ADX_THRESHOLD" default:"25"`
	BreakoutWindow int             `envconfig:"BREAKOUT_WINDOW" default:"50"`
	StopWindow     int             `envconfig:"STOP_WINDOW" default:"20"`
	TrendWindow    int             `envconfig:"TREND_WINDOW" default:"14"`
	LookbackDays   int             `envconfig:"LOOKBACK_DAYS" default:"100"`
	FeeRate        decimal.Decimal `envconfig:"FEE_RATE" default:"0.0015"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultConfig mirrors the envconfig defaults.
func DefaultConfig() Config {
	w := indicators.DefaultWindows()
	return Config{
		Assets:         []string{"BTC-USD", "ETH-USD", "SPY", "GC=F"},
		RiskPerTrade:   decimal.RequireFromString("0.02"),
		MaxGlobalRisk:  decimal.RequireFromString("0.06"),
		ADXThreshold:   decimal.NewFromInt(25),
		BreakoutWindow: w.Breakout,
		StopWindow:     w.Stop,
		TrendWindow:    w.TrendStrength,
		LookbackDays:   100,
		FeeRate:        decimal.RequireFromString("0.0015"),
	}
}

func (c Config) Windows() indicators.Windows {
	return indicators.Windows{
		Breakout:      c.BreakoutWindow,
		Stop:          c.StopWindow,
		TrendStrength: c.TrendWindow,
	}
}

// Validate rejects configurations that cannot produce a sane cycle.
func (c Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("no assets configured")
	}
	if !c.RiskPerTrade.IsPositive() || !c.MaxGlobalRisk.IsPositive() {
		return fmt.Errorf("risk per trade and max global risk must be positive")
	}
	if c.FeeRate.IsNegative() {
		return fmt.Errorf("fee rate must not be negative")
	}
	if c.BreakoutWindow <= 0 || c.StopWindow <= 0 || c.TrendWindow <= 0 {
		return fmt.Errorf("indicator windows must be positive")
	}
	if need := c.Windows().MinCandles(); c.LookbackDays < need {
		return fmt.Errorf("lookback of %d days is shorter than the %d candles the indicators need", c.LookbackDays, need)
	}
	return nil
}
