package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Position is an open lot. There is at most one per asset.
type Position struct {
	Quantity       decimal.Decimal `json:"qty"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	EntryTimestamp Timestamp       `json:"entry_date"`
}

// ClosedTrade archives a position that was fully closed in one sell.
type ClosedTrade struct {
	Asset         string          `json:"asset"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	ExitPrice     decimal.Decimal `json:"exit_price"`
	RealizedPnL   decimal.Decimal `json:"pnl_net"`
	ExitTimestamp Timestamp       `json:"exit_date"`
}

// PortfolioState is the single persisted aggregate of the paper account.
type PortfolioState struct {
	Cash        decimal.Decimal     `json:"cash"`
	Positions   map[string]Position `json:"positions"`
	History     []ClosedTrade       `json:"history"`
	LastUpdated Timestamp           `json:"last_updated"`
}

// The state file stores amounts as JSON numbers. Decimals elsewhere keep the
// library's quoted form, so the state types marshal their amounts themselves.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func (p Position) MarshalJSON() ([]byte, error) {
	type alias Position
	return json.Marshal(struct {
		Quantity   json.Number `json:"qty"`
		EntryPrice json.Number `json:"entry_price"`
		alias
	}{number(p.Quantity), number(p.EntryPrice), alias(p)})
}

func (t ClosedTrade) MarshalJSON() ([]byte, error) {
	type alias ClosedTrade
	return json.Marshal(struct {
		EntryPrice  json.Number `json:"entry_price"`
		ExitPrice   json.Number `json:"exit_price"`
		RealizedPnL json.Number `json:"pnl_net"`
		alias
	}{number(t.EntryPrice), number(t.ExitPrice), number(t.RealizedPnL), alias(t)})
}

func (s PortfolioState) MarshalJSON() ([]byte, error) {
	type alias PortfolioState
	return json.Marshal(struct {
		Cash json.Number `json:"cash"`
		alias
	}{number(s.Cash), alias(s)})
}

// NewPortfolioState returns an empty account funded with initialCash.
func NewPortfolioState(initialCash decimal.Decimal) *PortfolioState {
	return &PortfolioState{
		Cash:      initialCash,
		Positions: map[string]Position{},
		History:   []ClosedTrade{},
	}
}

// Clone returns a deep copy. History entries are values, so copying the slice is enough.
func (s *PortfolioState) Clone() *PortfolioState {
	if s == nil {
		return nil
	}
	out := &PortfolioState{
		Cash:        s.Cash,
		Positions:   make(map[string]Position, len(s.Positions)),
		History:     make([]ClosedTrade, len(s.History)),
		LastUpdated: s.LastUpdated,
	}
	for asset, p := range s.Positions {
		out.Positions[asset] = p
	}
	copy(out.History, s.History)
	return out
}

// Normalize replaces nil collections read from disk with empty ones.
func (s *PortfolioState) Normalize() {
	if s.Positions == nil {
		s.Positions = map[string]Position{}
	}
	if s.History == nil {
		s.History = []ClosedTrade{}
	}
}
