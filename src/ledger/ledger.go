// Package ledger owns the paper portfolio. It is the only component allowed to
// change cash, positions and trade history, and every change is persisted before
// it is reported as filled.
package ledger

import (
	"context"
	"fmt"
	"time"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the durable backing of the ledger.
type Store interface {
	LoadOrCreate(initialCash decimal.Decimal) (*model.PortfolioState, error)
	Save(state *model.PortfolioState) error
}

// TradeRecorder receives every fill after it has been persisted. It is a reporting
// side channel; its failures never undo a trade.
type TradeRecorder interface {
	RecordFill(ctx context.Context, fill Fill) error
}

type Status string

const (
	StatusFilled   Status = "filled"
	StatusRejected Status = "rejected"
)

type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	RejectNoPosition        RejectReason = "no_position"
	RejectPositionExists    RejectReason = "position_exists"
	RejectInvalidOrder      RejectReason = "invalid_order"
)

// Fill is the outcome of a buy or sell. A rejected fill left the state untouched.
type Fill struct {
	Asset       string
	Side        string
	Status      Status
	Reason      RejectReason
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Gross       decimal.Decimal
	Fee         decimal.Decimal
	Net         decimal.Decimal // cash debited on a buy, credited on a sell
	RealizedPnL decimal.Decimal
	CashAfter   decimal.Decimal
	ExecutedAt  time.Time
}

func (f Fill) Filled() bool { return f.Status == StatusFilled }

type Ledger struct {
	logger   *logrus.Entry
	store    Store
	state    *model.PortfolioState
	recorder TradeRecorder
	now      func() time.Time
}

// Open loads the persisted portfolio, creating a funded one on first run. A corrupt
// state file surfaces as the store's error unchanged.
func Open(logger *logrus.Entry, store Store, initialCash decimal.Decimal) (*Ledger, error) {
	state, err := store.LoadOrCreate(initialCash)
	if err != nil {
		return nil, err
	}
	return New(logger, store, state), nil
}

func New(logger *logrus.Entry, store Store, state *model.PortfolioState) *Ledger {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	state.Normalize()
	return &Ledger{
		logger: logger.WithField("component", "ledger"),
		store:  store,
		state:  state,
		now:    time.Now,
	}
}

// SetRecorder attaches a journal. Pass nil to detach.
func (l *Ledger) SetRecorder(r TradeRecorder) {
	l.recorder = r
}

func (l *Ledger) GetPosition(asset string) (model.Position, bool) {
	p, ok := l.state.Positions[asset]
	return p, ok
}

func (l *Ledger) ActivePositionCount() int {
	return len(l.state.Positions)
}

func (l *Ledger) Cash() decimal.Decimal {
	return l.state.Cash
}

func (l *Ledger) History() []model.ClosedTrade {
	out := make([]model.ClosedTrade, len(l.state.History))
	copy(out, l.state.History)
	return out
}

// State returns a deep copy for read-only collaborators.
func (l *Ledger) State() *model.PortfolioState {
	return l.state.Clone()
}

// ExecuteBuy opens a position of quantity at price, charging cost*feeRate on top.
// A buy into an asset that is already held is rejected, never merged or overwritten.
func (l *Ledger) ExecuteBuy(ctx context.Context, asset string, price, quantity, feeRate decimal.Decimal) (Fill, error) {
	fill := Fill{Asset: asset, Side: model.SideBuy, Quantity: quantity, Price: price}
	log := l.logger.WithFields(logrus.Fields{"asset": asset, "side": model.SideBuy})

	if asset == "" || !price.IsPositive() || !quantity.IsPositive() || feeRate.IsNegative() {
		log.WithFields(logrus.Fields{
			"price":    price.String(),
			"quantity": quantity.String(),
			"feeRate":  feeRate.String(),
		}).Error("buy rejected: invalid order")
		return l.reject(fill, RejectInvalidOrder), nil
	}

	if _, held := l.state.Positions[asset]; held {
		log.Warn("buy rejected: position already open, lots are never merged")
		return l.reject(fill, RejectPositionExists), nil
	}

	cost := quantity.Mul(price)
	fee := cost.Mul(feeRate)
	total := cost.Add(fee)
	fill.Gross, fill.Fee, fill.Net = cost, fee, total

	if total.GreaterThan(l.state.Cash) {
		log.WithFields(logrus.Fields{
			"required": total.StringFixed(2),
			"cash":     l.state.Cash.StringFixed(2),
		}).Error("buy rejected: insufficient cash")
		return l.reject(fill, RejectInsufficientFunds), nil
	}

	before := l.state.Clone()
	now := model.NewTimestamp(l.now())

	l.state.Cash = l.state.Cash.Sub(total)
	l.state.Positions[asset] = model.Position{
		Quantity:       quantity,
		EntryPrice:     price,
		EntryTimestamp: now,
	}

	if err := l.commit(before); err != nil {
		return l.reject(fill, RejectNone), fmt.Errorf("persist buy %s: %w", asset, err)
	}

	fill.Status = StatusFilled
	fill.CashAfter = l.state.Cash
	fill.ExecutedAt = now.Time

	log.WithFields(logrus.Fields{
		"quantity": quantity.StringFixed(4),
		"price":    price.StringFixed(2),
		"fee":      fee.StringFixed(2),
		"cash":     l.state.Cash.StringFixed(2),
	}).Info("buy filled")

	l.record(ctx, fill)
	return fill, nil
}

// ExecuteSell closes the whole position in asset at price and archives the trade.
func (l *Ledger) ExecuteSell(ctx context.Context, asset string, price, feeRate decimal.Decimal) (Fill, error) {
	fill := Fill{Asset: asset, Side: model.SideSell, Price: price}
	log := l.logger.WithFields(logrus.Fields{"asset": asset, "side": model.SideSell})

	position, held := l.state.Positions[asset]
	if !held {
		log.Error("sell rejected: asset is not in the portfolio")
		return l.reject(fill, RejectNoPosition), nil
	}
	fill.Quantity = position.Quantity

	if !price.IsPositive() || feeRate.IsNegative() {
		log.WithFields(logrus.Fields{
			"price":   price.String(),
			"feeRate": feeRate.String(),
		}).Error("sell rejected: invalid order")
		return l.reject(fill, RejectInvalidOrder), nil
	}

	gross := position.Quantity.Mul(price)
	fee := gross.Mul(feeRate)
	net := gross.Sub(fee)
	pnl := net.Sub(position.Quantity.Mul(position.EntryPrice))
	fill.Gross, fill.Fee, fill.Net, fill.RealizedPnL = gross, fee, net, pnl

	before := l.state.Clone()
	now := model.NewTimestamp(l.now())

	l.state.Cash = l.state.Cash.Add(net)
	l.state.History = append(l.state.History, model.ClosedTrade{
		Asset:         asset,
		EntryPrice:    position.EntryPrice,
		ExitPrice:     price,
		RealizedPnL:   pnl,
		ExitTimestamp: now,
	})
	delete(l.state.Positions, asset)

	if err := l.commit(before); err != nil {
		return l.reject(fill, RejectNone), fmt.Errorf("persist sell %s: %w", asset, err)
	}

	fill.Status = StatusFilled
	fill.CashAfter = l.state.Cash
	fill.ExecutedAt = now.Time

	log.WithFields(logrus.Fields{
		"price": price.StringFixed(2),
		"pnl":   pnl.StringFixed(2),
		"cash":  l.state.Cash.StringFixed(2),
	}).Info("sell filled")

	l.record(ctx, fill)
	return fill, nil
}

// commit persists the mutated state. On failure the in-memory state is rolled back
// so it never diverges from the durable record.
func (l *Ledger) commit(before *model.PortfolioState) error {
	if err := l.store.Save(l.state); err != nil {
		l.state = before
		l.logger.WithError(err).Error("failed to persist portfolio state, mutation rolled back")
		return err
	}
	return nil
}

func (l *Ledger) reject(fill Fill, reason RejectReason) Fill {
	fill.Status = StatusRejected
	fill.Reason = reason
	fill.CashAfter = l.state.Cash
	return fill
}

func (l *Ledger) record(ctx context.Context, fill Fill) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordFill(ctx, fill); err != nil {
		l.logger.WithError(err).WithField("asset", fill.Asset).Warn("failed to journal fill")
	}
}
