package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type staticState struct{ state *model.PortfolioState }

func (s staticState) Load() (*model.PortfolioState, error) { return s.state.Clone(), nil }

func TestRouterServesReadOnlyRoutes(t *testing.T) {
	state := model.NewPortfolioState(decimal.NewFromInt(10000))
	srv := httptest.NewServer(NewRouter(Deps{State: staticState{state: state}, MaxPositions: 3}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/portfolio")
	require.NoError(t, err)
	var snap model.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	require.Equal(t, 3, snap.MaxPositions)
	require.True(t, snap.Cash.Equal(decimal.NewFromInt(10000)))

	resp, err = http.Get(srv.URL + "/history")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// journal disabled
	resp, err = http.Get(srv.URL + "/trades")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouterHasNoWritePath(t *testing.T) {
	state := model.NewPortfolioState(decimal.NewFromInt(10000))
	srv := httptest.NewServer(NewRouter(Deps{State: staticState{state: state}, MaxPositions: 3}))
	defer srv.Close()

	for _, path := range []string{"/portfolio", "/history"} {
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}
