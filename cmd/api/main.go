package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"cashflow_sim/pkg/api/round"
	"cashflow_sim/pkg/api/session"
	"cashflow_sim/pkg/core/config"
	"cashflow_sim/pkg/core/logger"
	"cashflow_sim/pkg/core/store"
)

func main() {
	cfg, envLoaded := config.Load()

	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("[FATAL] Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !envLoaded {
		logger.L.Info("No .env file found, using environment only")
	}

	sim, err := config.LoadSimulator(cfg.SimConfigPath)
	if err != nil {
		logger.L.Fatal("Failed to load simulator config", zap.String("path", cfg.SimConfigPath), zap.Error(err))
	}
	logger.L.Info("Simulator config loaded",
		zap.String("path", cfg.SimConfigPath),
		zap.Float64("firm_cash", sim.Initial.FirmCash),
		zap.Float64("market_cash", sim.Initial.MarketCash),
		zap.Bool("strict", sim.Strict))

	// Session vault: Postgres when configured, files otherwise
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			logger.L.Warn("Database unavailable, falling back to file sessions", zap.Error(err))
		} else {
			logger.L.Info("Session store: postgres")
		}
		cancel()
		defer store.Close()
	}
	repo, err := store.NewSessionRepo(store.GetPool(), cfg.SessionDir)
	if err != nil {
		logger.L.Fatal("Failed to create session repository", zap.Error(err))
	}

	mux := http.NewServeMux()

	// Stateless round endpoints
	roundHandler := round.NewHandler(sim)
	mux.HandleFunc("/api/round", roundHandler.HandleRound)
	mux.HandleFunc("/api/round/frames", roundHandler.HandleFrames)
	mux.HandleFunc("/api/round/defaults", roundHandler.HandleDefaults)

	// Session endpoints
	sessionHandler := session.NewHandler(repo, sim, cfg.SessionTTL)
	mux.HandleFunc("/api/session", sessionHandler.HandleGet)
	mux.HandleFunc("/api/session/start", sessionHandler.HandleStart)
	mux.HandleFunc("/api/session/round", sessionHandler.HandlePlay)
	mux.HandleFunc("/api/session/reset", sessionHandler.HandleReset)
	mux.HandleFunc("/api/session/delete", sessionHandler.HandleDelete)
	mux.HandleFunc("/api/session/report", sessionHandler.HandleReport)

	limiter := newLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           requestLogger(rateLimitMiddleware(limiter, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L.Info("API server starting", zap.String("addr", addr))
	logger.L.Info("Endpoints registered", zap.Strings("routes", []string{
		"POST /api/round",
		"POST /api/round/frames",
		"GET  /api/round/defaults",
		"POST /api/session/start",
		"POST /api/session/round",
		"GET  /api/session?id=",
		"POST /api/session/reset",
		"POST /api/session/delete",
		"GET  /api/session/report?id=&format=md|html",
	}))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Fatal("Server failed to start", zap.Error(err))
	}
}
