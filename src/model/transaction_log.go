package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// TransactionLog mirrors one filled paper order into the journal database. The
// state file stays the source of truth; this table exists for reporting.
type TransactionLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CycleID     string          `gorm:"size:36;index" json:"cycle_id"`
	Asset       string          `gorm:"size:50;not null;index" json:"asset"`
	Side        string          `gorm:"size:10;not null" json:"side"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Fee         decimal.Decimal `gorm:"type:numeric;not null" json:"fee"`
	RealizedPnL decimal.Decimal `gorm:"type:numeric" json:"realized_pnl"`
	CashAfter   decimal.Decimal `gorm:"type:numeric;not null" json:"cash_after"`
	ExecutedAt  time.Time       `gorm:"not null;index" json:"executed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (TransactionLog) TableName() string {
	return "paper_trades"
}
