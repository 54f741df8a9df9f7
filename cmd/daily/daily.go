package daily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"papertrader/src/dashboard"
	"papertrader/src/database"
	"papertrader/src/database/migrations"
	"papertrader/src/engine"
	"papertrader/src/indicators"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/notify"
	"papertrader/src/repository"
	"papertrader/src/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const serviceName = "papertrader"

// Daily runs one decision cycle against the persisted paper portfolio.
type Daily struct {
	Log      *logrus.Entry
	Config   *Config
	Engine   engine.Config
	Provider marketdata.Provider
	Notifier notify.Notifier
	DB       *gorm.DB
}

func (d *Daily) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if d.Log == nil {
		d.Log = logrus.WithField("cmd", "run")
	}
	if d.Config == nil {
		d.Config = GetConfig()
	}
	d.Engine = engine.GetConfig()

	if err := database.InitMainDB(); err != nil {
		d.Log.WithError(err).Error("Failed to connect to journal database")
		return err
	}
	d.DB = database.MainDB

	provider, err := marketdata.New(d.Log, marketdata.GetConfig())
	if err != nil {
		return err
	}
	d.Provider = provider

	d.Notifier = notify.NewMulti(d.Log,
		notify.NewLogNotifier(d.Log),
		notify.NewDiscordNotifier(notify.GetConfig()),
	)

	_, err = d.Run(ctx)
	return err
}

// Run executes the cycle with the collaborators already set on d.
func (d *Daily) Run(ctx context.Context) (engine.CycleReport, error) {
	if err := d.Engine.Validate(); err != nil {
		return engine.CycleReport{}, fmt.Errorf("invalid engine config: %w", err)
	}

	fileStore := store.NewFileStore(d.Config.StateFile, d.Log)
	book, err := ledger.Open(d.Log, fileStore, d.Config.InitialCash)
	if err != nil {
		if errors.Is(err, store.ErrCorruptState) {
			d.Log.WithError(err).WithField("path", fileStore.Path()).
				Error("portfolio state file is corrupt, refusing to continue; restore or remove it manually")
		}
		d.recordException(ctx, "store", "LoadOrCreate", err)
		return engine.CycleReport{}, err
	}

	eng := engine.New(d.Log, d.Engine, book, d.Notifier)
	log := d.Log.WithField("cycle_id", eng.CycleID())

	provider := d.Provider
	if d.DB != nil {
		provider = marketdata.NewCachingProvider(log, provider, repository.NewOHLCVRepositoryWithDB(d.DB))

		if err := d.backfillJournal(book.History()); err != nil {
			log.WithError(err).Warn("failed to backfill trade journal")
		}
		book.SetRecorder(repository.NewJournalRepositoryWithDB(d.DB, eng.CycleID()))
	}

	frames := eng.Collect(ctx, provider)
	report, err := eng.RunCycle(ctx, frames)
	if err != nil {
		log.WithError(err).Error("decision cycle aborted")
		d.recordException(ctx, "engine", "RunCycle", err)
		return report, err
	}

	snap := dashboard.Build(book.State(), marks(frames), eng.MaxPositions())
	log.Info("\n" + dashboard.Render(snap))
	return report, nil
}

// backfillJournal copies closed trades that predate the journal into it, once.
func (d *Daily) backfillJournal(history []model.ClosedTrade) error {
	return migrations.RunOnce(d.DB, "00002_backfill_paper_trades_from_history", func(tx *gorm.DB) error {
		journal := repository.NewJournalRepositoryWithDB(tx, "backfill")
		for _, trade := range history {
			if err := journal.ImportClosedTrade(context.Background(), trade); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Daily) recordException(ctx context.Context, module, method string, cause error) {
	if d.DB == nil {
		return
	}

	level := "error"
	if errors.Is(cause, store.ErrCorruptState) {
		level = "fatal"
	}
	extra, _ := json.Marshal(map[string]string{"state_file": d.Config.StateFile})

	exc := &model.Exception{
		Service: serviceName,
		Module:  module,
		Method:  method,
		Message: cause.Error(),
		Level:   level,
		Context: string(extra),
	}
	if err := repository.NewExceptionRepositoryWithDB(d.DB).Create(ctx, exc); err != nil {
		d.Log.WithError(err).Warn("failed to persist exception")
	}
}

func marks(frames []indicators.Frame) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(frames))
	for _, f := range frames {
		out[f.Asset] = f.Close
	}
	return out
}
