package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/config"
	"github.com/yengrand82/Loan-Manager/internal/handler"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/infra/resilience"
	"github.com/yengrand82/Loan-Manager/internal/infra/sheets"
	"github.com/yengrand82/Loan-Manager/internal/ledger"
	"github.com/yengrand82/Loan-Manager/internal/service"
	"github.com/yengrand82/Loan-Manager/internal/stats"
	syncctl "github.com/yengrand82/Loan-Manager/internal/sync"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	if cfg.SheetsURL == "" {
		logger.Fatal("SHEETS_URL is required")
	}

	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "loanmgr")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	metrics := observability.NewMetrics()

	store := sheets.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SheetsURL,
		resilience.NewBreaker("sheets"),
		resilience.Policy{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		metrics,
		logger,
	)

	lgr := ledger.New(cfg.RegenCacheTTL, metrics, logger)
	ctl := syncctl.NewController(store, metrics, logger)

	h := handler.NewHandler(
		service.NewAuthService(ctl, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.SessionTTL, logger),
		service.NewBorrowerService(store, ctl, lgr, metrics, logger),
		service.NewLoanService(ctl, lgr, logger),
		service.NewPaymentService(store, ctl, metrics, logger),
		service.NewApplicationService(store, ctl, metrics, logger),
		service.NewMessageService(store, ctl, logger),
		stats.New(lgr, logger),
		ctl,
		metrics,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the snapshot before serving; readiness stays 503 until one lands.
	if _, err := ctl.Refresh(ctx, false); err != nil {
		logger.Warn("initial snapshot fetch failed, serving empty until sync catches up", zap.Error(err))
	}
	go ctl.Run(ctx, cfg.RefreshInterval, func() bool { return false })

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
