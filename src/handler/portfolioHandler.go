package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"papertrader/src/dashboard"
	"papertrader/src/model"
	"papertrader/src/store"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type stateLoader interface {
	Load() (*model.PortfolioState, error)
}

type markSource interface {
	LatestCloses(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

type journalReader interface {
	Latest(ctx context.Context, limit int) ([]model.TransactionLog, error)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func loadState(w http.ResponseWriter, loader stateLoader) (*model.PortfolioState, bool) {
	state, err := loader.Load()
	switch {
	case err == nil:
		return state, true
	case errors.Is(err, store.ErrStateNotFound):
		http.Error(w, "portfolio not initialized", http.StatusNotFound)
	case errors.Is(err, store.ErrCorruptState):
		logger.WithError(err).Error("portfolio state is corrupt")
		http.Error(w, "portfolio state is corrupt", http.StatusInternalServerError)
	default:
		logger.WithError(err).Error("failed to load portfolio state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	return nil, false
}

func parseLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PortfolioHandler serves the marked-to-market snapshot. marks may be nil, in which
// case positions are valued at entry price.
func PortfolioHandler(loader stateLoader, marks markSource, maxPositions int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := loadState(w, loader)
		if !ok {
			return
		}

		var prices map[string]decimal.Decimal
		if marks != nil && len(state.Positions) > 0 {
			assets := make([]string, 0, len(state.Positions))
			for asset := range state.Positions {
				assets = append(assets, asset)
			}
			var err error
			prices, err = marks.LatestCloses(r.Context(), assets)
			if err != nil {
				logger.WithError(err).Warn("failed to load marks, valuing at entry")
				prices = nil
			}
		}

		writeJSON(w, dashboard.Build(state, prices, maxPositions))
	}
}

// HistoryHandler lists closed trades, newest first.
func HistoryHandler(loader stateLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r, 50)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		state, ok := loadState(w, loader)
		if !ok {
			return
		}

		if limit > len(state.History) {
			limit = len(state.History)
		}
		out := make([]model.ClosedTrade, 0, limit)
		for i := len(state.History) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, state.History[i])
		}
		writeJSON(w, out)
	}
}

// TradesHandler lists journaled fills, newest first.
func TradesHandler(journal journalReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r, 20)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		rows, err := journal.Latest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to read trade journal")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
	}
}
