package repository

import (
	"context"
	"papertrader/src/database"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OHLCVRepository struct {
	db *gorm.DB
}

// NewOHLCVRepository creates a repository on the main database.
func NewOHLCVRepository() *OHLCVRepository {
	return NewOHLCVRepositoryWithDB(database.MainDB)
}

func NewOHLCVRepositoryWithDB(db *gorm.DB) *OHLCVRepository {
	logger.WithField("component", "OHLCVRepository").
		Debug("Creating new OHLCVRepository")

	return &OHLCVRepository{
		db: db,
	}
}

// UpsertDaily stores candles under their upper-cased symbol, updating prices when
// (symbol, datetime) already exists.
func (s *OHLCVRepository) UpsertDaily(ctx context.Context, candles []model.OHLCVDaily) error {
	if len(candles) == 0 {
		return nil
	}

	rows := make([]model.OHLCVDaily, len(candles))
	for i, c := range candles {
		c.Symbol = model.CandleSymbol(c.Symbol)
		rows[i] = c
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source"}),
		}).
		Create(&rows).Error
}

// LatestCloses returns the most recent stored close for each symbol that has one,
// keyed by the symbol as given.
func (s *OHLCVRepository) LatestCloses(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		var row model.OHLCVDaily
		err := s.db.WithContext(ctx).
			Where("symbol = ?", model.CandleSymbol(symbol)).
			Order("datetime DESC").
			Limit(1).
			Find(&row).Error
		if err != nil {
			return nil, err
		}
		if row.ID == 0 {
			continue
		}
		out[symbol] = row.Close
	}
	return out, nil
}
