package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVDaily is one daily candle. It doubles as the cached row in ohlcv_daily.
type OHLCVDaily struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_ohlcv_daily_symbol_datetime,priority:1;index:idx_ohlcv_daily_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_ohlcv_daily_symbol_datetime,priority:2;index:idx_ohlcv_daily_symbol_datetime,priority:2"`
	Open     decimal.Decimal `json:"open"   gorm:"type:numeric;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:numeric;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:numeric;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:numeric;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:numeric;not null"`
	Source   string          `json:"source" gorm:"type:varchar(20)"`
}

func (OHLCVDaily) TableName() string {
	return "ohlcv_daily"
}

// CandleSymbol is the stored form of a ticker: trimmed and upper-cased.
func CandleSymbol(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
