package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/config"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/contacts"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/handlers"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/logging"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/metrics"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/stats"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/templates"
)

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Driver == config.DriverSQLite {
		return store.OpenSQL(cfg.DBPath)
	}
	return store.OpenJSON(cfg.DBPath, logger)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Driver), zap.Error(err))
	}

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	collector := metrics.New()
	manager := contacts.NewManager(st, contacts.WithLogger(logger), contacts.WithObserver(collector))
	h := handlers.New(st, manager, stats.NewProjector(st), templates.NewLibrary(st), logger)
	r := handlers.NewRouter(h, collector, handlers.RouterConfig{
		FrontendURL:  cfg.FrontendURL,
		RateLimit:    cfg.RateLimit,
		RateWindow:   cfg.RateWindow,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Driver), zap.String("db", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if err := st.Close(); err != nil {
		logger.Error("close store", zap.Error(err))
	}
	logger.Info("server stopped")
}
