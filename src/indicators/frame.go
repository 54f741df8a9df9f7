package indicators

import (
	"errors"
	"fmt"
	"time"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

// ErrNoCandles is returned when a provider produced no usable bars.
var ErrNoCandles = errors.New("no candles")

// Windows configures the lookbacks of the three signals.
type Windows struct {
	Breakout      int
	Stop          int
	TrendStrength int
}

func DefaultWindows() Windows {
	return Windows{Breakout: 50, Stop: 20, TrendStrength: 14}
}

// MinCandles is how many bars are needed before every lagged signal is valid.
func (w Windows) MinCandles() int {
	n := w.Breakout
	if w.Stop > n {
		n = w.Stop
	}
	if adx := 2 * w.TrendStrength; adx > n {
		n = adx
	}
	return n + 1
}

// Frame is the decision input for one asset as of its most recent complete period.
// The three references are lagged one period, so they only reflect data through the
// previous bar.
type Frame struct {
	Asset         string
	AsOf          time.Time
	Close         decimal.Decimal
	BreakoutRef   decimal.NullDecimal
	StopRef       decimal.NullDecimal
	TrendStrength decimal.NullDecimal
}

// Ready reports whether every reference is available.
func (f Frame) Ready() bool {
	return f.BreakoutRef.Valid && f.StopRef.Valid && f.TrendStrength.Valid
}

// Prepare computes the signal frame from chronologically ordered daily candles.
func Prepare(asset string, candles []model.OHLCVDaily, w Windows) (Frame, error) {
	if len(candles) == 0 {
		return Frame{}, fmt.Errorf("prepare %s: %w", asset, ErrNoCandles)
	}

	highs := make([]decimal.Decimal, len(candles))
	lows := make([]decimal.Decimal, len(candles))
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}

	last := candles[len(candles)-1]
	return Frame{
		Asset:         asset,
		AsOf:          last.Datetime,
		Close:         last.Close,
		BreakoutRef:   Shift(RollingMax(highs, w.Breakout), 1).Last(),
		StopRef:       Shift(RollingMin(lows, w.Stop), 1).Last(),
		TrendStrength: Shift(ADX(highs, lows, closes, w.TrendStrength), 1).Last(),
	}, nil
}
