package model

import (
	"github.com/shopspring/decimal"
)

// PositionView is an open position marked to market.
type PositionView struct {
	Asset         string          `json:"asset"`
	Quantity      decimal.Decimal `json:"qty"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPct decimal.Decimal `json:"unrealized_pct"`
	Marked        bool            `json:"marked"`
	EntryDate     Timestamp       `json:"entry_date"`
}

// Snapshot is the read-only view handed to display collaborators.
type Snapshot struct {
	Cash         decimal.Decimal `json:"cash"`
	Positions    []PositionView  `json:"positions"`
	OpenCount    int             `json:"open_count"`
	MaxPositions int             `json:"max_positions"`
	TotalValue   decimal.Decimal `json:"total_value"`
	ClosedTrades int             `json:"closed_trades"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	LastUpdated  Timestamp       `json:"last_updated"`
}
