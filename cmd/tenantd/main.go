package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tendant/simple-tenant/internal/config"
	"github.com/tendant/simple-tenant/pkg/repository"
	"github.com/tendant/simple-tenant/tenantkit"
)

func main() {
	// config.Load reads .env itself
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	db, err := repository.NewDB(cfg.DB.Repository())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database", "driver", cfg.DB.Driver)

	kit, err := tenantkit.New(tenantkit.Config{
		DB:             db,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
		BaseDomain:     cfg.BaseDomain,
		SelectorHeader: cfg.SelectorHeader,
		UnscopedDebug:  cfg.UnscopedDebug,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		HSTSMaxAge:     cfg.HSTSMaxAge,
		RateLimit:      cfg.RateLimit,
		CookieSecure:   cfg.HSTSMaxAge > 0,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      kit.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
