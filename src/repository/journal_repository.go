package repository

import (
	"context"
	"papertrader/src/database"
	"papertrader/src/ledger"
	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// JournalRepository mirrors paper fills into paper_trades.
type JournalRepository struct {
	db      *gorm.DB
	cycleID string
}

func NewJournalRepository(cycleID string) *JournalRepository {
	return NewJournalRepositoryWithDB(database.MainDB, cycleID)
}

func NewJournalRepositoryWithDB(db *gorm.DB, cycleID string) *JournalRepository {
	return &JournalRepository{db: db, cycleID: cycleID}
}

// RecordFill implements ledger.TradeRecorder.
func (r *JournalRepository) RecordFill(ctx context.Context, fill ledger.Fill) error {
	row := &model.TransactionLog{
		CycleID:     r.cycleID,
		Asset:       fill.Asset,
		Side:        fill.Side,
		Quantity:    fill.Quantity,
		Price:       fill.Price,
		Fee:         fill.Fee,
		RealizedPnL: fill.RealizedPnL,
		CashAfter:   fill.CashAfter,
		ExecutedAt:  fill.ExecutedAt,
	}

	logger.WithFields(logger.Fields{
		"cycle_id": r.cycleID,
		"asset":    fill.Asset,
		"side":     fill.Side,
	}).Debug("journaling paper fill")

	return r.db.WithContext(ctx).Create(row).Error
}

// ImportClosedTrade stores a closed trade from the state history as a sell row. Used
// to backfill the journal the first time it is enabled.
func (r *JournalRepository) ImportClosedTrade(ctx context.Context, trade model.ClosedTrade) error {
	row := &model.TransactionLog{
		CycleID:     r.cycleID,
		Asset:       trade.Asset,
		Side:        model.SideSell,
		Price:       trade.ExitPrice,
		RealizedPnL: trade.RealizedPnL,
		ExecutedAt:  trade.ExitTimestamp.Time,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// Latest returns the newest journal rows, newest first.
func (r *JournalRepository) Latest(ctx context.Context, limit int) ([]model.TransactionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.TransactionLog
	err := r.db.WithContext(ctx).
		Order("executed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
