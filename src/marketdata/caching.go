package marketdata

import (
	"context"

	"papertrader/src/model"

	"github.com/sirupsen/logrus"
)

// CandleStore is the persistence the caching provider writes through to.
type CandleStore interface {
	UpsertDaily(ctx context.Context, candles []model.OHLCVDaily) error
}

// CachingProvider writes every fetched candle to the store. Upstream failures
// are returned unchanged so the asset is skipped for the cycle; stored candles
// are never served in place of a fresh fetch.
type CachingProvider struct {
	logger   *logrus.Entry
	upstream Provider
	store    CandleStore
}

func NewCachingProvider(logger *logrus.Entry, upstream Provider, store CandleStore) *CachingProvider {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CachingProvider{
		logger:   logger.WithField("component", "candle_cache"),
		upstream: upstream,
		store:    store,
	}
}

func (c *CachingProvider) DailyCandles(ctx context.Context, asset string, days int) ([]model.OHLCVDaily, error) {
	candles, err := c.upstream.DailyCandles(ctx, asset, days)
	if err != nil {
		return nil, err
	}

	if err := c.store.UpsertDaily(ctx, candles); err != nil {
		c.logger.WithField("asset", asset).WithError(err).Warn("failed to cache candles")
	}
	return candles, nil
}
