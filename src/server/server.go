package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrader/src/handler"
	"papertrader/src/model"
	"papertrader/src/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

type StateLoader interface {
	Load() (*model.PortfolioState, error)
}

// Deps are the read-only collaborators behind the dashboard routes. Candles and
// Journal are nil when the database is disabled.
type Deps struct {
	State        StateLoader
	Candles      *repository.OHLCVRepository
	Journal      *repository.JournalRepository
	MaxPositions int
}

func NewRouter(deps Deps) chi.Router {
	// Router with middleware
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})

	// Read-only portfolio routes. A nil *OHLCVRepository must not become a non-nil interface.
	if deps.Candles != nil {
		r.Get("/portfolio", handler.PortfolioHandler(deps.State, deps.Candles, deps.MaxPositions))
	} else {
		r.Get("/portfolio", handler.PortfolioHandler(deps.State, nil, deps.MaxPositions))
	}
	r.Get("/history", handler.HistoryHandler(deps.State))
	if deps.Journal != nil {
		r.Get("/trades", handler.TradesHandler(deps.Journal))
	}

	return r
}

// StartServer serves handler until SIGINT or SIGTERM.
func StartServer(port string, h http.Handler, shutdownTimeout time.Duration) {
	// Graceful server
	// Server setup
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
