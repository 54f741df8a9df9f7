// Package engine runs one daily decision cycle: an exit pass over held assets, then
// an entry pass under the global position cap.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papertrader/src/indicators"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/notify"
	"papertrader/src/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Portfolio is the ledger surface the loop drives.
type Portfolio interface {
	GetPosition(asset string) (model.Position, bool)
	ActivePositionCount() int
	Cash() decimal.Decimal
	ExecuteBuy(ctx context.Context, asset string, price, quantity, feeRate decimal.Decimal) (ledger.Fill, error)
	ExecuteSell(ctx context.Context, asset string, price, feeRate decimal.Decimal) (ledger.Fill, error)
}

type Action string

const (
	ActionBuy         Action = "buy"
	ActionSell        Action = "sell"
	ActionHold        Action = "hold"
	ActionRejected    Action = "rejected"
	ActionCapReached  Action = "cap_reached"
	ActionFiltered    Action = "filtered"
	ActionNoBreakout  Action = "no_breakout"
	ActionNotReady    Action = "not_ready"
	ActionDegenerate  Action = "degenerate_risk"
	ActionMissingData Action = "missing_data"
)

const (
	PassExit  = "exit"
	PassEntry = "entry"
)

// Decision is what the loop did with one asset in one pass.
type Decision struct {
	Asset         string
	Pass          string
	Action        Action
	Close         decimal.Decimal
	Reference     decimal.NullDecimal
	TrendStrength decimal.NullDecimal
	Quantity      decimal.Decimal
	Fill          *ledger.Fill
	Note          string
}

type CycleReport struct {
	CycleID      string
	StartedAt    time.Time
	FinishedAt   time.Time
	MaxPositions int
	Decisions    []Decision
	Buys         int
	Sells        int
	OpenAfter    int
	CashAfter    decimal.Decimal
}

// Count returns how many decisions took the given action.
func (r CycleReport) Count(action Action) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}

type Engine struct {
	logger       *logrus.Entry
	cfg          Config
	portfolio    Portfolio
	notifier     notify.Notifier
	maxPositions int
	cycleID      string
	now          func() time.Time
}

func New(logger *logrus.Entry, cfg Config, portfolio Portfolio, notifier notify.Notifier) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	cycleID := uuid.NewString()
	return &Engine{
		logger:       logger.WithFields(logrus.Fields{"component": "engine", "cycle_id": cycleID}),
		cfg:          cfg,
		portfolio:    portfolio,
		notifier:     notifier,
		maxPositions: risk.MaxPositions(cfg.MaxGlobalRisk, cfg.RiskPerTrade),
		cycleID:      cycleID,
		now:          time.Now,
	}
}

func (e *Engine) CycleID() string {
	return e.cycleID
}

func (e *Engine) MaxPositions() int {
	return e.maxPositions
}

// Collect fetches candles and prepares a frame for each configured asset, in
// configuration order. Assets that cannot be fetched or prepared are left out.
func (e *Engine) Collect(ctx context.Context, provider marketdata.Provider) []indicators.Frame {
	frames := make([]indicators.Frame, 0, len(e.cfg.Assets))
	for _, asset := range e.cfg.Assets {
		log := e.logger.WithField("asset", asset)

		candles, err := provider.DailyCandles(ctx, asset, e.cfg.LookbackDays)
		if err != nil {
			log.WithError(err).Warn("market data unavailable, skipping asset this cycle")
			continue
		}

		frame, err := indicators.Prepare(asset, candles, e.cfg.Windows())
		if err != nil {
			log.WithError(err).Warn("cannot prepare indicators, skipping asset this cycle")
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}

// RunCycle evaluates frames in order: every exit first, then entries. Business
// rejections are final outcomes for the cycle. A ledger error means the state could
// not be persisted; the cycle stops and the error is returned.
func (e *Engine) RunCycle(ctx context.Context, frames []indicators.Frame) (CycleReport, error) {
	report := CycleReport{
		CycleID:      e.cycleID,
		StartedAt:    e.now(),
		MaxPositions: e.maxPositions,
	}
	e.logger.WithFields(logrus.Fields{
		"assets":        len(frames),
		"max_positions": e.maxPositions,
		"open":          e.portfolio.ActivePositionCount(),
	}).Info("decision cycle started")

	e.missing(ctx, frames, &report)
	for _, f := range frames {
		if err := e.exit(ctx, f, &report); err != nil {
			return e.finish(report), err
		}
	}
	for _, f := range frames {
		if err := e.entry(ctx, f, &report); err != nil {
			return e.finish(report), err
		}
	}

	report = e.finish(report)
	e.logger.WithFields(logrus.Fields{
		"buys":  report.Buys,
		"sells": report.Sells,
		"open":  report.OpenAfter,
		"cash":  report.CashAfter.StringFixed(2),
	}).Info("decision cycle finished")
	return report, nil
}

func (e *Engine) finish(report CycleReport) CycleReport {
	report.FinishedAt = e.now()
	report.OpenAfter = e.portfolio.ActivePositionCount()
	report.CashAfter = e.portfolio.Cash()
	return report
}

// missing records held positions whose asset has no frame this cycle. They are
// kept untouched until fresh data arrives.
func (e *Engine) missing(ctx context.Context, frames []indicators.Frame, report *CycleReport) {
	seen := make(map[string]bool, len(frames))
	for _, f := range frames {
		seen[f.Asset] = true
	}
	for _, asset := range e.cfg.Assets {
		pos, held := e.portfolio.GetPosition(asset)
		if !held || seen[asset] {
			continue
		}
		e.logger.WithFields(logrus.Fields{"asset": asset, "pass": PassExit}).
			Warn("no market data for held position, leaving it open")
		e.record(ctx, report, Decision{
			Asset:    asset,
			Pass:     PassExit,
			Action:   ActionMissingData,
			Quantity: pos.Quantity,
			Note:     "no fresh market data this cycle",
		})
	}
}

func (e *Engine) exit(ctx context.Context, f indicators.Frame, report *CycleReport) error {
	pos, held := e.portfolio.GetPosition(f.Asset)
	if !held {
		return nil
	}

	d := Decision{Asset: f.Asset, Pass: PassExit, Close: f.Close, Reference: f.StopRef, Quantity: pos.Quantity}
	log := e.logger.WithFields(logrus.Fields{"asset": f.Asset, "pass": PassExit})

	if !f.StopRef.Valid {
		d.Action = ActionNotReady
		log.Warn("stop reference not available, holding")
		e.record(ctx, report, d)
		return nil
	}

	if !f.Close.LessThan(f.StopRef.Decimal) {
		d.Action = ActionHold
		log.WithFields(logrus.Fields{
			"close": f.Close.String(),
			"stop":  f.StopRef.Decimal.String(),
		}).Info("holding position, support intact")
		e.record(ctx, report, d)
		return nil
	}

	fill, err := e.portfolio.ExecuteSell(ctx, f.Asset, f.Close, e.cfg.FeeRate)
	if err != nil {
		return fmt.Errorf("cycle %s exit %s: %w", e.cycleID, f.Asset, err)
	}
	d.Fill = &fill
	if fill.Filled() {
		d.Action = ActionSell
		report.Sells++
		log.WithField("pnl", fill.RealizedPnL.StringFixed(2)).Info("support broken, position closed")
	} else {
		d.Action = ActionRejected
		d.Note = string(fill.Reason)
		log.WithField("reason", fill.Reason).Warn("sell rejected")
	}
	e.record(ctx, report, d)
	return nil
}

func (e *Engine) entry(ctx context.Context, f indicators.Frame, report *CycleReport) error {
	if _, held := e.portfolio.GetPosition(f.Asset); held {
		return nil
	}

	d := Decision{
		Asset:         f.Asset,
		Pass:          PassEntry,
		Close:         f.Close,
		Reference:     f.BreakoutRef,
		TrendStrength: f.TrendStrength,
	}
	log := e.logger.WithFields(logrus.Fields{"asset": f.Asset, "pass": PassEntry})

	if open := e.portfolio.ActivePositionCount(); open >= e.maxPositions {
		d.Action = ActionCapReached
		d.Note = fmt.Sprintf("%d/%d positions open", open, e.maxPositions)
		log.WithField("open", open).Warn("max positions reached, entry skipped")
		e.record(ctx, report, d)
		return nil
	}

	if !f.Ready() {
		d.Action = ActionNotReady
		log.Warn("indicators still warming up, entry skipped")
		e.record(ctx, report, d)
		return nil
	}

	if !f.Close.GreaterThan(f.BreakoutRef.Decimal) {
		d.Action = ActionNoBreakout
		log.WithFields(logrus.Fields{
			"close":    f.Close.String(),
			"breakout": f.BreakoutRef.Decimal.String(),
		}).Debug("no breakout")
		e.record(ctx, report, d)
		return nil
	}

	if !f.TrendStrength.Decimal.GreaterThan(e.cfg.ADXThreshold) {
		d.Action = ActionFiltered
		d.Note = "trend too weak"
		log.WithField("adx", f.TrendStrength.Decimal.StringFixed(2)).Info("breakout filtered, trend too weak")
		e.record(ctx, report, d)
		return nil
	}

	cash := e.portfolio.Cash()
	stop := f.StopRef.Decimal
	qty, err := risk.SizePosition(cash, e.cfg.RiskPerTrade, f.Close, stop, risk.MaxAffordableQuantity(cash, f.Close))
	if errors.Is(err, risk.ErrDegenerateRisk) || errors.Is(err, risk.ErrInvalidRiskInput) || (err == nil && !qty.IsPositive()) {
		d.Action = ActionDegenerate
		if err != nil {
			d.Note = err.Error()
		}
		log.WithFields(logrus.Fields{
			"close": f.Close.String(),
			"stop":  stop.String(),
			"cash":  cash.String(),
		}).Warn("cannot size position, entry skipped")
		e.record(ctx, report, d)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cycle %s size %s: %w", e.cycleID, f.Asset, err)
	}

	d.Quantity = qty
	fill, err := e.portfolio.ExecuteBuy(ctx, f.Asset, f.Close, qty, e.cfg.FeeRate)
	if err != nil {
		return fmt.Errorf("cycle %s entry %s: %w", e.cycleID, f.Asset, err)
	}
	d.Fill = &fill
	if fill.Filled() {
		d.Action = ActionBuy
		report.Buys++
		log.WithFields(logrus.Fields{
			"qty":   qty.StringFixed(6),
			"price": f.Close.String(),
			"stop":  stop.String(),
		}).Info("breakout confirmed, position opened")
	} else {
		d.Action = ActionRejected
		d.Note = string(fill.Reason)
		log.WithField("reason", fill.Reason).Warn("buy rejected")
	}
	e.record(ctx, report, d)
	return nil
}

// record appends the decision and emits it. Notification failures are logged only.
func (e *Engine) record(ctx context.Context, report *CycleReport, d Decision) {
	report.Decisions = append(report.Decisions, d)
	if e.notifier == nil || d.Action == ActionNoBreakout || d.Action == ActionHold {
		return
	}
	if err := e.notifier.Notify(ctx, e.event(d)); err != nil {
		e.logger.WithError(err).WithField("asset", d.Asset).Warn("notification failed")
	}
}

func (e *Engine) event(d Decision) notify.Event {
	ev := notify.Event{
		Kind:   string(d.Action),
		Asset:  d.Asset,
		Level:  notify.LevelInfo,
		Fields: map[string]string{"cycle_id": e.cycleID},
	}
	if !d.Close.IsZero() {
		ev.Fields["close"] = d.Close.String()
	}
	if d.Reference.Valid {
		ev.Fields["reference"] = d.Reference.Decimal.String()
	}
	if d.TrendStrength.Valid {
		ev.Fields["adx"] = d.TrendStrength.Decimal.StringFixed(2)
	}

	switch d.Action {
	case ActionBuy:
		ev.Title = "Entry filled"
		ev.Message = fmt.Sprintf("bought %s %s at %s", d.Fill.Quantity.StringFixed(6), d.Asset, d.Fill.Price.String())
		ev.Fields["cash_after"] = d.Fill.CashAfter.StringFixed(2)
	case ActionSell:
		ev.Title = "Exit filled"
		ev.Message = fmt.Sprintf("sold %s %s at %s", d.Fill.Quantity.StringFixed(6), d.Asset, d.Fill.Price.String())
		ev.Fields["pnl"] = d.Fill.RealizedPnL.StringFixed(2)
		ev.Fields["cash_after"] = d.Fill.CashAfter.StringFixed(2)
	case ActionFiltered:
		ev.Title = "Breakout filtered"
		ev.Message = d.Note
	case ActionCapReached:
		ev.Title = "Position cap reached"
		ev.Message = d.Note
		ev.Level = notify.LevelWarn
	case ActionMissingData:
		ev.Title = "Exit check skipped"
		ev.Message = d.Note
		ev.Level = notify.LevelWarn
	case ActionRejected:
		ev.Title = "Order rejected"
		ev.Message = d.Note
		ev.Level = notify.LevelWarn
	default:
		ev.Title = "Entry skipped"
		ev.Message = d.Note
		ev.Level = notify.LevelWarn
	}
	return ev
}
