package model

import (
	"papertrader/src/utils"
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVBase is a source-agnostic bar as returned by a market-data provider.
type OHLCVBase struct {
	Datetime time.Time       `json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `json:"symbol"`
	Source   string          `json:"source"`
}

// Complete reports whether every price field is populated. Providers drop bars
// that are not.
func (o *OHLCVBase) Complete() bool {
	return o.Open.IsPositive() && o.High.IsPositive() && o.Low.IsPositive() && o.Close.IsPositive()
}

func (o *OHLCVBase) ConvertToOHLCVDaily() *OHLCVDaily {
	return &OHLCVDaily{
		Datetime: utils.ResetTime(o.Datetime, "day"),
		Open:     o.Open,
		High:     o.High,
		Low:      o.Low,
		Close:    o.Close,
		Volume:   o.Volume,
		Symbol:   o.Symbol,
		Source:   o.Source,
	}
}
