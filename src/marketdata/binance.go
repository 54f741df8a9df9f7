package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"papertrader/src/model"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxBinanceLimit is the largest page the klines endpoint serves.
const maxBinanceLimit = 1000

// BinanceProvider reads daily klines from the Binance public API. Assets are quoted
// as BASE-USD and mapped to BASE_<quote>.
type BinanceProvider struct {
	logger   *logrus.Entry
	exchange goex.API
	quote    string
}

func NewBinanceProvider(logger *logrus.Entry, endpoint, quote string) *BinanceProvider {
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   endpoint,
	}
	return NewBinanceProviderWithAPI(logger, binance.NewWithConfig(apiConfig), quote)
}

func NewBinanceProviderWithAPI(logger *logrus.Entry, api goex.API, quote string) *BinanceProvider {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if quote == "" {
		quote = "USDT"
	}
	return &BinanceProvider{
		logger:   logger.WithField("component", "binance"),
		exchange: api,
		quote:    quote,
	}
}

// Pair maps an asset like BTC-USD to its Binance pair. Only -USD crypto tickers map.
func (b *BinanceProvider) Pair(asset string) (goex.CurrencyPair, error) {
	base, ok := strings.CutSuffix(strings.ToUpper(asset), "-USD")
	if !ok || base == "" || strings.ContainsAny(base, "=^.") {
		return goex.CurrencyPair{}, fmt.Errorf("binance %s: %w", asset, ErrUnsupportedSymbol)
	}
	return goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: b.quote}), nil
}

func (b *BinanceProvider) DailyCandles(ctx context.Context, asset string, days int) ([]model.OHLCVDaily, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair, err := b.Pair(asset)
	if err != nil {
		return nil, err
	}

	limit := days
	if limit <= 0 || limit > maxBinanceLimit {
		limit = maxBinanceLimit
	}

	klines, err := b.exchange.GetKlineRecords(pair, goex.KLINE_PERIOD_1DAY, limit)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", pair.String(), err)
	}

	bars := make([]model.OHLCVBase, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, model.OHLCVBase{
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
			Symbol:   asset,
			Source:   SourceBinance,
		})
	}

	candles := tail(normalize(bars), days)
	if len(candles) == 0 {
		return nil, fmt.Errorf("binance klines %s: %w", pair.String(), ErrNoData)
	}

	b.logger.WithFields(logrus.Fields{
		"asset":   asset,
		"pair":    pair.String(),
		"candles": len(candles),
	}).Debug("fetched daily klines")
	return candles, nil
}
