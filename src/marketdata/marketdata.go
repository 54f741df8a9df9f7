// Package marketdata fetches daily candles from public sources.
package marketdata

import (
	"context"
	"errors"
	"sort"

	"papertrader/src/model"
)

var (
	// ErrNoData means the source answered but returned no complete bars.
	ErrNoData = errors.New("no market data")
	// ErrUnsupportedSymbol means the source cannot quote the asset at all.
	ErrUnsupportedSymbol = errors.New("symbol not supported by source")
)

// Provider returns up to days daily candles for asset, oldest first.
type Provider interface {
	DailyCandles(ctx context.Context, asset string, days int) ([]model.OHLCVDaily, error)
}

// normalize keeps complete bars, folds them onto UTC days, de-duplicates by day
// (last bar wins) and sorts ascending.
func normalize(bars []model.OHLCVBase) []model.OHLCVDaily {
	byDay := make(map[int64]model.OHLCVDaily, len(bars))
	for i := range bars {
		if !bars[i].Complete() {
			continue
		}
		daily := bars[i].ConvertToOHLCVDaily()
		byDay[daily.Datetime.Unix()] = *daily
	}

	out := make([]model.OHLCVDaily, 0, len(byDay))
	for _, c := range byDay {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return out
}

func tail(candles []model.OHLCVDaily, n int) []model.OHLCVDaily {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
