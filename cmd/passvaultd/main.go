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

	postgresadapter "passvault/internal/adapter/driven/postgres"
	sqliteadapter "passvault/internal/adapter/driven/sqlite"
	httphandler "passvault/internal/adapter/driving/http"
	"passvault/internal/config"
	"passvault/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"postgres", cfg.DatabaseURL != "",
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the backing store: PostgreSQL when a DSN is configured,
	// otherwise the embedded SQLite database.
	var store driven.RecordStore
	if cfg.DatabaseURL != "" {
		db, err := postgresadapter.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgresadapter.RunMigrations(db); err != nil {
			return err
		}
		store = postgresadapter.NewRecordRepo(db)
		slog.Info("postgres store opened")
	} else {
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		store = sqliteadapter.NewRecordRepo(db)
		slog.Info("sqlite store opened", "path", cfg.DBPath)
	}

	// 4. Assemble the router and serve.
	handler := httphandler.NewHandler(store, slog.Default())
	router := httphandler.NewRouter(handler, slog.Default(), httphandler.RouterConfig{
		AllowedOrigin: cfg.AllowedOrigin,
		RatePerSecond: 20,
		RateBurst:     40,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sync api listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
