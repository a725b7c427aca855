// Package main is the entry point for the Quiet Locations API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/config"
	"github.com/pkordes/quietlocations/backend/internal/handler"
	"github.com/pkordes/quietlocations/backend/internal/service"
	"github.com/pkordes/quietlocations/backend/internal/store"
	"github.com/pkordes/quietlocations/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Open(startCtx, cfg.DatabaseURL, logger)
	cancelStart()
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Driver(), "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// --- Services ---------------------------------------------------------
	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		slog.Error("failed to create token verifier", "error", err)
		os.Exit(1)
	}
	catalog := service.NewCatalogService(db)
	tags := service.NewTagService(db)
	occupancy := service.NewOccupancyService(db, service.StaticConsent(cfg.ReportingConsentDefault), service.OccupancyConfig{
		MaxDistanceKm: cfg.ProximityMaxMeters / 1000,
		Window:        cfg.OccupancyWindow,
	})

	// --- Router -----------------------------------------------------------
	srv := handler.NewServer(catalog, tags, occupancy,
		handler.WithLogger(logger),
		handler.WithStoreTimeout(cfg.StoreTimeout),
		handler.WithPinger(db),
	)
	router := handler.NewRouter(srv, handler.RouterConfig{
		Verifier:         verifier,
		Logger:           logger,
		CORSOrigins:      cfg.CORSOrigins,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		ReportRateLimit:  cfg.ReportRateLimit,
		ReportRateWindow: cfg.ReportRateWindow,
		OpenAPI:          spec.OpenAPI,
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting",
			"addr", httpSrv.Addr,
			"driver", cfg.Driver(),
			"proximity_max_m", cfg.ProximityMaxMeters,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
