package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	s := NewFileStore(path, logrus.NewEntry(logrus.New()))
	s.now = func() time.Time { return time.Date(2025, 3, 4, 21, 5, 6, 123456789, time.UTC) }
	return s
}

func requireSameState(t *testing.T, want, got *model.PortfolioState) {
	t.Helper()
	require.True(t, want.Cash.Equal(got.Cash), "cash want=%s got=%s", want.Cash, got.Cash)
	require.True(t, want.LastUpdated.Equal(got.LastUpdated.Time), "last_updated want=%s got=%s", want.LastUpdated, got.LastUpdated)
	require.Len(t, got.Positions, len(want.Positions))
	for asset, wp := range want.Positions {
		gp, ok := got.Positions[asset]
		require.True(t, ok, "missing position %s", asset)
		require.True(t, wp.Quantity.Equal(gp.Quantity))
		require.True(t, wp.EntryPrice.Equal(gp.EntryPrice))
		require.True(t, wp.EntryTimestamp.Equal(gp.EntryTimestamp.Time))
	}
	require.Len(t, got.History, len(want.History))
	for i := range want.History {
		w, g := want.History[i], got.History[i]
		require.Equal(t, w.Asset, g.Asset)
		require.True(t, w.EntryPrice.Equal(g.EntryPrice))
		require.True(t, w.ExitPrice.Equal(g.ExitPrice))
		require.True(t, w.RealizedPnL.Equal(g.RealizedPnL))
		require.True(t, w.ExitTimestamp.Equal(g.ExitTimestamp.Time))
	}
}

func TestLoadOrCreate_FreshStateIsPersisted(t *testing.T) {
	s := newTestStore(t)

	state, err := s.LoadOrCreate(d("10000"))
	require.NoError(t, err)
	require.True(t, state.Cash.Equal(d("10000")))
	require.Empty(t, state.Positions)
	require.Empty(t, state.History)
	require.False(t, state.LastUpdated.IsZero())

	_, err = os.Stat(s.Path())
	require.NoError(t, err, "fresh state must be written to disk")

	_, err = os.Stat(s.Path() + stagingSuffix)
	require.True(t, os.IsNotExist(err), "staging file must not survive a successful save")
}

func TestLoadOrCreate_ExistingStateIsNotReset(t *testing.T) {
	s := newTestStore(t)

	state, err := s.LoadOrCreate(d("10000"))
	require.NoError(t, err)
	state.Cash = d("1234.5")
	require.NoError(t, s.Save(state))

	again, err := s.LoadOrCreate(d("99999"))
	require.NoError(t, err)
	require.True(t, again.Cash.Equal(d("1234.5")))
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	entry := model.NewTimestamp(time.Date(2025, 2, 1, 10, 0, 0, 555000, time.UTC))
	exit := model.NewTimestamp(time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC))
	state := &model.PortfolioState{
		Cash: d("9197.8"),
		Positions: map[string]model.Position{
			"BTC-USD": {Quantity: d("0.0512345"), EntryPrice: d("61234.56"), EntryTimestamp: entry},
			"GC=F":    {Quantity: d("3"), EntryPrice: d("2010.1"), EntryTimestamp: entry},
		},
		History: []model.ClosedTrade{{
			Asset:         "SPY",
			EntryPrice:    d("100"),
			ExitPrice:     d("120"),
			RealizedPnL:   d("198.8"),
			ExitTimestamp: exit,
		}},
	}

	require.NoError(t, s.Save(state))
	require.Equal(t, "2025-03-04 21:05:06.123456", state.LastUpdated.String())

	loaded, err := s.LoadOrCreate(d("10000"))
	require.NoError(t, err)
	requireSameState(t, state, loaded)
}

func TestLoad_CorruptStateIsFatalAndUntouched(t *testing.T) {
	s := newTestStore(t)
	garbage := []byte(`{"cash": 100, "positions": {`)
	require.NoError(t, os.WriteFile(s.Path(), garbage, 0o644))

	_, err := s.LoadOrCreate(d("10000"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorruptState))

	var corrupt *CorruptStateError
	require.True(t, errors.As(err, &corrupt))
	require.Equal(t, s.Path(), corrupt.Path)

	onDisk, readErr := os.ReadFile(s.Path())
	require.NoError(t, readErr)
	require.Equal(t, garbage, onDisk, "a corrupt ledger must never be overwritten")
}

func TestLoad_MissingState(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrStateNotFound)

	_, statErr := os.Stat(s.Path())
	require.True(t, os.IsNotExist(statErr), "Load must not create state")
}

func TestSave_OverwritesLeftoverStagingFile(t *testing.T) {
	s := newTestStore(t)
	state, err := s.LoadOrCreate(d("500"))
	require.NoError(t, err)

	// simulate a write that died half way through
	require.NoError(t, os.WriteFile(s.Path()+stagingSuffix, []byte(`{"cash": 1, "posi`), 0o644))

	state.Cash = d("450.25")
	require.NoError(t, s.Save(state))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.True(t, loaded.Cash.Equal(d("450.25")))
}

func TestSave_FailureKeepsDurableRecord(t *testing.T) {
	s := newTestStore(t)
	state, err := s.LoadOrCreate(d("500"))
	require.NoError(t, err)
	before := state.LastUpdated

	// a directory at the staging path makes the staging open fail
	require.NoError(t, os.Mkdir(s.Path()+stagingSuffix, 0o755))

	state.Cash = d("1")
	err = s.Save(state)
	require.Error(t, err)
	require.True(t, before.Equal(state.LastUpdated.Time), "last_updated must not move on a failed save")

	loaded, err := s.Load()
	require.NoError(t, err)
	require.True(t, loaded.Cash.Equal(d("500")))
}

func TestLoad_ReadsOriginalStateFormat(t *testing.T) {
	s := newTestStore(t)
	legacy := `{
    "cash": 8999.0,
    "positions": {
        "BTC-USD": {
            "qty": 0.05,
            "entry_price": 60000.0,
            "entry_date": "2025-01-10 09:15:02.480211"
        }
    },
    "history": [
        {
            "asset": "ETH-USD",
            "entry_price": 3000.0,
            "exit_price": 3300.0,
            "pnl_net": 295.05,
            "exit_date": "2025-01-09 09:15:00"
        }
    ],
    "last_updated": "2025-01-10 09:15:02.481000"
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	require.True(t, state.Cash.Equal(d("8999")))
	pos, ok := state.Positions["BTC-USD"]
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(d("0.05")))
	require.Equal(t, 480211000, pos.EntryTimestamp.Nanosecond())
	require.Len(t, state.History, 1)
	require.True(t, state.History[0].RealizedPnL.Equal(d("295.05")))
	require.Equal(t, 2025, state.History[0].ExitTimestamp.Year())
}

func TestLoad_NullCollectionsAreNormalized(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"cash": 10, "positions": null, "history": null, "last_updated": ""}`), 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, state.Positions)
	require.NotNil(t, state.History)
}
