package candles

import (
	"context"
	"errors"
	"math"
	"time"

	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/utils"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Candles backfills the daily candle cache for every configured asset.
type Candles struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	Provider marketdata.Provider
	now      func() time.Time
}

func (c *Candles) Start(ctx context.Context) error {
	if c.Config == nil {
		c.Config = GetConfig()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.DB == nil {
		return errors.New("candles command requires ENABLE_DB=true")
	}

	repo := repository.NewOHLCVRepositoryWithDB(c.DB)

	var failed int
	for _, asset := range c.Config.Assets {
		log := c.Log.WithField("asset", asset)

		days := c.Config.Days
		if c.Config.AutoMode {
			var err error
			if days, err = c.daysToFetch(asset); err != nil {
				log.WithError(err).Error("Failed to query latest datetime")
				return err
			}
		}
		if days == 0 {
			log.Info("candles already up to date")
			continue
		}

		candles, err := c.Provider.DailyCandles(ctx, asset, days)
		if err != nil {
			log.WithError(err).Warn("failed to fetch candles")
			failed++
			continue
		}

		if err := repo.UpsertDaily(ctx, candles); err != nil {
			log.WithError(err).Error("failed to store candles")
			return err
		}

		log.WithFields(logger.Fields{
			"candles": len(candles),
			"days":    days,
		}).Info("OHLCV daily data inserted or updated in database")
	}

	if failed == len(c.Config.Assets) && failed > 0 {
		return errors.New("no asset could be fetched")
	}
	return nil
}

// daysToFetch resumes from the latest stored candle, refetching that day since it
// may have been partial. With nothing stored it falls back to Config.Days.
func (c *Candles) daysToFetch(asset string) (int, error) {
	var latest model.OHLCVDaily
	result := c.DB.Model(&model.OHLCVDaily{}).
		Where("symbol = ?", model.CandleSymbol(asset)).
		Order("datetime DESC").
		Limit(1).
		Find(&latest)
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		c.Log.WithField("asset", asset).
			WithField("days", c.Config.Days).
			Info("no records found, backfilling the configured window")
		return c.Config.Days, nil
	}

	today := utils.ResetTime(c.now(), "day")
	last := utils.ResetTime(latest.Datetime, "day")
	days := int(math.Ceil(today.Sub(last).Hours()/24)) + 1
	if days > c.Config.Days {
		days = c.Config.Days
	}
	return days, nil
}
