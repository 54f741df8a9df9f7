// Package dashboard builds read-only views of the portfolio.
package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Build marks every open position to market. Assets missing from marks are valued at
// their entry price and flagged as unmarked.
func Build(state *model.PortfolioState, marks map[string]decimal.Decimal, maxPositions int) model.Snapshot {
	snap := model.Snapshot{
		Cash:         state.Cash,
		Positions:    make([]model.PositionView, 0, len(state.Positions)),
		OpenCount:    len(state.Positions),
		MaxPositions: maxPositions,
		ClosedTrades: len(state.History),
		RealizedPnL:  decimal.Zero,
		LastUpdated:  state.LastUpdated,
	}

	assets := make([]string, 0, len(state.Positions))
	for asset := range state.Positions {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	total := state.Cash
	for _, asset := range assets {
		pos := state.Positions[asset]
		mark, ok := marks[asset]
		if !ok || !mark.IsPositive() {
			mark, ok = pos.EntryPrice, false
		}

		view := model.PositionView{
			Asset:       asset,
			Quantity:    pos.Quantity,
			EntryPrice:  pos.EntryPrice,
			MarkPrice:   mark,
			MarketValue: pos.Quantity.Mul(mark),
			Marked:      ok,
			EntryDate:   pos.EntryTimestamp,
		}
		if pos.EntryPrice.IsPositive() {
			view.UnrealizedPct = mark.Div(pos.EntryPrice).Sub(decimal.NewFromInt(1)).Mul(hundred)
		}

		total = total.Add(view.MarketValue)
		snap.Positions = append(snap.Positions, view)
	}
	snap.TotalValue = total

	for _, trade := range state.History {
		snap.RealizedPnL = snap.RealizedPnL.Add(trade.RealizedPnL)
	}
	return snap
}

// Render formats a snapshot as the plain-text summary printed by the status command.
func Render(s model.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio as of %s\n", s.LastUpdated)
	fmt.Fprintf(&b, "Cash:        %s\n", s.Cash.StringFixed(2))
	fmt.Fprintf(&b, "Total value: %s\n", s.TotalValue.StringFixed(2))
	fmt.Fprintf(&b, "Positions:   %d/%d\n", s.OpenCount, s.MaxPositions)
	for _, p := range s.Positions {
		mark := p.MarkPrice.StringFixed(2)
		if !p.Marked {
			mark += " (entry)"
		}
		fmt.Fprintf(&b, "-> %s : Qty: %s | Entry: %s | Mark: %s | PnL: %s%%\n",
			p.Asset, p.Quantity.StringFixed(4), p.EntryPrice.StringFixed(2), mark, p.UnrealizedPct.StringFixed(2))
	}
	fmt.Fprintf(&b, "Closed trades: %d | Realized PnL: %s\n", s.ClosedTrades, s.RealizedPnL.StringFixed(2))
	return b.String()
}
