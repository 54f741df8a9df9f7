package marketdata

import (
	"context"
	"errors"
	"fmt"

	"papertrader/src/model"

	"github.com/sirupsen/logrus"
)

// Router sends crypto tickers to Binance and falls back to Yahoo for everything
// Binance cannot quote.
type Router struct {
	primary  *BinanceProvider
	fallback Provider
}

func (r *Router) DailyCandles(ctx context.Context, asset string, days int) ([]model.OHLCVDaily, error) {
	candles, err := r.primary.DailyCandles(ctx, asset, days)
	if errors.Is(err, ErrUnsupportedSymbol) {
		return r.fallback.DailyCandles(ctx, asset, days)
	}
	return candles, err
}

// New builds the provider selected by cfg.Source.
func New(logger *logrus.Entry, cfg Config) (Provider, error) {
	switch cfg.Source {
	case SourceYahoo, "":
		return NewYahooProvider(logger), nil
	case SourceBinance:
		return NewBinanceProvider(logger, cfg.BinanceEndpoint, cfg.BinanceQuote), nil
	case SourceAuto:
		return &Router{
			primary:  NewBinanceProvider(logger, cfg.BinanceEndpoint, cfg.BinanceQuote),
			fallback: NewYahooProvider(logger),
		}, nil
	default:
		return nil, fmt.Errorf("unknown market data source %q", cfg.Source)
	}
}
