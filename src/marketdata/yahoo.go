package marketdata

import (
	"context"
	"fmt"
	"time"

	"papertrader/src/model"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ChartIter is the part of the finance-go chart iterator the provider reads.
type ChartIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

type ChartFetcher func(params *chart.Params) ChartIter

func defaultChartFetcher(params *chart.Params) ChartIter {
	return chart.Get(params)
}

// YahooProvider reads daily bars from the Yahoo chart API.
type YahooProvider struct {
	logger *logrus.Entry
	fetch  ChartFetcher
	now    func() time.Time
}

func NewYahooProvider(logger *logrus.Entry) *YahooProvider {
	return NewYahooProviderWithFetcher(logger, defaultChartFetcher)
}

func NewYahooProviderWithFetcher(logger *logrus.Entry, fetch ChartFetcher) *YahooProvider {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &YahooProvider{
		logger: logger.WithField("component", "yahoo"),
		fetch:  fetch,
		now:    time.Now,
	}
}

func (y *YahooProvider) DailyCandles(ctx context.Context, asset string, days int) ([]model.OHLCVDaily, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := y.now().UTC()
	start := end.AddDate(0, 0, -days)
	params := &chart.Params{
		Symbol:   asset,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := y.fetch(params)

	var bars []model.OHLCVBase
	for iter.Next() {
		bar := iter.Bar()
		if bar == nil {
			continue
		}
		bars = append(bars, model.OHLCVBase{
			Datetime: time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   decimal.NewFromInt(int64(bar.Volume)),
			Symbol:   asset,
			Source:   SourceYahoo,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", asset, err)
	}

	candles := tail(normalize(bars), days)
	if len(candles) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", asset, ErrNoData)
	}

	y.logger.WithFields(logrus.Fields{
		"asset":   asset,
		"candles": len(candles),
	}).Debug("fetched daily candles")
	return candles, nil
}
