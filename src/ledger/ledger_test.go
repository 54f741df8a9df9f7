package ledger

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"papertrader/src/model"
	"papertrader/src/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openLedger(t *testing.T, cash string) (*Ledger, *store.FileStore) {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"), logrus.NewEntry(logger))
	l, err := Open(logrus.NewEntry(logger), fs, d(cash))
	require.NoError(t, err)
	return l, fs
}

type failingStore struct {
	saves int
	err   error
}

func (f *failingStore) LoadOrCreate(initialCash decimal.Decimal) (*model.PortfolioState, error) {
	return model.NewPortfolioState(initialCash), nil
}

func (f *failingStore) Save(_ *model.PortfolioState) error {
	f.saves++
	return f.err
}

type recorderStub struct {
	fills []Fill
	err   error
}

func (r *recorderStub) RecordFill(_ context.Context, fill Fill) error {
	r.fills = append(r.fills, fill)
	return r.err
}

func TestBuyThenSell_ConcreteScenario(t *testing.T) {
	l, fs := openLedger(t, "10000")
	ctx := context.Background()

	buy, err := l.ExecuteBuy(ctx, "X", d("100"), d("10"), d("0.001"))
	require.NoError(t, err)
	require.True(t, buy.Filled())
	require.True(t, buy.Gross.Equal(d("1000")))
	require.True(t, buy.Fee.Equal(d("1")))
	require.True(t, l.Cash().Equal(d("8999")), "cash=%s", l.Cash())

	sell, err := l.ExecuteSell(ctx, "X", d("120"), d("0.001"))
	require.NoError(t, err)
	require.True(t, sell.Filled())
	require.True(t, sell.Gross.Equal(d("1200")))
	require.True(t, sell.Fee.Equal(d("1.2")))
	require.True(t, sell.Net.Equal(d("1198.8")))
	require.True(t, sell.RealizedPnL.Equal(d("198.8")))
	require.True(t, l.Cash().Equal(d("10197.8")), "cash=%s", l.Cash())

	_, held := l.GetPosition("X")
	require.False(t, held)
	history := l.History()
	require.Len(t, history, 1)
	require.True(t, history[0].RealizedPnL.Equal(d("198.8")))

	// every fill was durably recorded
	persisted, err := fs.Load()
	require.NoError(t, err)
	require.True(t, persisted.Cash.Equal(d("10197.8")))
	require.Len(t, persisted.History, 1)
	require.Empty(t, persisted.Positions)
}

func TestBuyThenSell_SamePriceZeroFeeIsFlat(t *testing.T) {
	l, _ := openLedger(t, "2500")
	ctx := context.Background()

	_, err := l.ExecuteBuy(ctx, "SPY", d("512.37"), d("3.3"), decimal.Zero)
	require.NoError(t, err)
	sell, err := l.ExecuteSell(ctx, "SPY", d("512.37"), decimal.Zero)
	require.NoError(t, err)

	require.True(t, sell.RealizedPnL.IsZero(), "pnl=%s", sell.RealizedPnL)
	require.True(t, l.Cash().Equal(d("2500")), "cash=%s", l.Cash())
}

func TestExecuteBuy_AddsRetrievablePosition(t *testing.T) {
	l, _ := openLedger(t, "10000")
	l.now = func() time.Time { return time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC) }

	require.Equal(t, 0, l.ActivePositionCount())
	fill, err := l.ExecuteBuy(context.Background(), "ETH-USD", d("3000"), d("0.5"), d("0.0015"))
	require.NoError(t, err)
	require.True(t, fill.Filled())
	require.Equal(t, 1, l.ActivePositionCount())

	p, ok := l.GetPosition("ETH-USD")
	require.True(t, ok)
	require.True(t, p.Quantity.Equal(d("0.5")))
	require.True(t, p.EntryPrice.Equal(d("3000")))
	require.Equal(t, "2025-05-02 08:00:00.000000", p.EntryTimestamp.String())
}

func TestExecuteBuy_InsufficientCashLeavesStateUntouched(t *testing.T) {
	l, fs := openLedger(t, "1000")
	before, err := fs.Load()
	require.NoError(t, err)

	// 10 * 100 = 1000 plus a fee does not fit
	fill, err := l.ExecuteBuy(context.Background(), "X", d("100"), d("10"), d("0.001"))
	require.NoError(t, err)
	require.False(t, fill.Filled())
	require.Equal(t, RejectInsufficientFunds, fill.Reason)
	require.True(t, l.Cash().Equal(d("1000")))
	require.Equal(t, 0, l.ActivePositionCount())

	after, err := fs.Load()
	require.NoError(t, err)
	require.True(t, before.LastUpdated.Equal(after.LastUpdated.Time), "a rejected buy must not persist")
}

func TestExecuteBuy_ExactCashIsAccepted(t *testing.T) {
	l, _ := openLedger(t, "1001")

	fill, err := l.ExecuteBuy(context.Background(), "X", d("100"), d("10"), d("0.001"))
	require.NoError(t, err)
	require.True(t, fill.Filled())
	require.True(t, l.Cash().IsZero())
}

func TestExecuteBuy_RejectsHeldAsset(t *testing.T) {
	l, _ := openLedger(t, "10000")
	ctx := context.Background()

	_, err := l.ExecuteBuy(ctx, "GC=F", d("2000"), d("1"), decimal.Zero)
	require.NoError(t, err)

	fill, err := l.ExecuteBuy(ctx, "GC=F", d("2100"), d("2"), decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, fill.Status)
	require.Equal(t, RejectPositionExists, fill.Reason)

	p, _ := l.GetPosition("GC=F")
	require.True(t, p.Quantity.Equal(d("1")), "original lot must be kept")
	require.True(t, l.Cash().Equal(d("8000")))
	require.Equal(t, 1, l.ActivePositionCount())
}

func TestExecuteBuy_RejectsInvalidOrders(t *testing.T) {
	l, _ := openLedger(t, "10000")
	ctx := context.Background()

	for _, tc := range []struct {
		name              string
		asset             string
		price, qty, feeRt decimal.Decimal
	}{
		{"zero quantity", "X", d("10"), decimal.Zero, decimal.Zero},
		{"negative price", "X", d("-10"), d("1"), decimal.Zero},
		{"negative fee", "X", d("10"), d("1"), d("-0.01")},
		{"empty asset", "", d("10"), d("1"), decimal.Zero},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fill, err := l.ExecuteBuy(ctx, tc.asset, tc.price, tc.qty, tc.feeRt)
			require.NoError(t, err)
			require.Equal(t, RejectInvalidOrder, fill.Reason)
			require.True(t, l.Cash().Equal(d("10000")))
		})
	}
}

func TestExecuteSell_NoPosition(t *testing.T) {
	l, _ := openLedger(t, "10000")

	fill, err := l.ExecuteSell(context.Background(), "BTC-USD", d("65000"), d("0.0015"))
	require.NoError(t, err)
	require.False(t, fill.Filled())
	require.Equal(t, RejectNoPosition, fill.Reason)
	require.Empty(t, l.History())
	require.True(t, l.Cash().Equal(d("10000")))
}

func TestExecuteSell_AppendsExactlyOneHistoryEntry(t *testing.T) {
	l, _ := openLedger(t, "10000")
	ctx := context.Background()

	_, err := l.ExecuteBuy(ctx, "A", d("10"), d("5"), decimal.Zero)
	require.NoError(t, err)
	_, err = l.ExecuteBuy(ctx, "B", d("20"), d("5"), decimal.Zero)
	require.NoError(t, err)

	fill, err := l.ExecuteSell(ctx, "A", d("8"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, fill.RealizedPnL.Equal(d("-10")))

	history := l.History()
	require.Len(t, history, 1)
	require.Equal(t, "A", history[0].Asset)
	require.True(t, history[0].EntryPrice.Equal(d("10")))
	require.True(t, history[0].ExitPrice.Equal(d("8")))

	_, held := l.GetPosition("A")
	require.False(t, held)
	_, held = l.GetPosition("B")
	require.True(t, held)
}

func TestCashNeverNegative_RandomSequences(t *testing.T) {
	l, _ := openLedger(t, "10000")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	assets := []string{"BTC-USD", "ETH-USD", "SPY", "GC=F", "QQQ"}

	for i := 0; i < 400; i++ {
		asset := assets[rng.Intn(len(assets))]
		price := decimal.NewFromFloat(1 + rng.Float64()*500).Round(2)
		fee := decimal.NewFromFloat(rng.Float64() * 0.01).Round(4)

		if rng.Intn(2) == 0 {
			qty := decimal.NewFromFloat(rng.Float64() * 40).Round(3)
			_, err := l.ExecuteBuy(ctx, asset, price, qty, fee)
			require.NoError(t, err)
		} else {
			_, err := l.ExecuteSell(ctx, asset, price, fee)
			require.NoError(t, err)
		}

		require.False(t, l.Cash().IsNegative(), "cash went negative at step %d: %s", i, l.Cash())
		for a, p := range l.State().Positions {
			require.True(t, p.Quantity.IsPositive(), "non-positive lot for %s", a)
		}
	}
}

func TestPersistFailure_RollsBackAndPropagates(t *testing.T) {
	fs := &failingStore{}
	l, err := Open(nil, fs, d("10000"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.ExecuteBuy(ctx, "X", d("100"), d("10"), decimal.Zero)
	require.NoError(t, err)

	fs.err = errors.New("disk full")

	_, err = l.ExecuteSell(ctx, "X", d("150"), decimal.Zero)
	require.Error(t, err)
	require.ErrorIs(t, err, fs.err)
	_, held := l.GetPosition("X")
	require.True(t, held, "failed sell must leave the position open")
	require.Empty(t, l.History())
	require.True(t, l.Cash().Equal(d("9000")))

	_, err = l.ExecuteBuy(ctx, "Y", d("10"), d("1"), decimal.Zero)
	require.Error(t, err)
	_, held = l.GetPosition("Y")
	require.False(t, held)
	require.True(t, l.Cash().Equal(d("9000")))
}

func TestRecorder_ReceivesFillsAndErrorsAreNotFatal(t *testing.T) {
	l, _ := openLedger(t, "10000")
	rec := &recorderStub{err: errors.New("journal down")}
	l.SetRecorder(rec)
	ctx := context.Background()

	buy, err := l.ExecuteBuy(ctx, "X", d("100"), d("1"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, buy.Filled())

	_, err = l.ExecuteSell(ctx, "missing", d("1"), decimal.Zero)
	require.NoError(t, err)

	sell, err := l.ExecuteSell(ctx, "X", d("110"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, sell.Filled())

	require.Len(t, rec.fills, 2, "only filled orders are journaled")
	require.Equal(t, model.SideBuy, rec.fills[0].Side)
	require.Equal(t, model.SideSell, rec.fills[1].Side)
	require.True(t, rec.fills[1].RealizedPnL.Equal(d("10")))
}

func TestState_IsACopy(t *testing.T) {
	l, _ := openLedger(t, "100")
	snapshot := l.State()
	snapshot.Cash = d("1")
	snapshot.Positions["Z"] = model.Position{Quantity: d("1"), EntryPrice: d("1")}

	require.True(t, l.Cash().Equal(d("100")))
	require.Equal(t, 0, l.ActivePositionCount())
}
