// Package main is the entry point of the bookshelf realtime server.
//
// main only wires things together, in this order:
//  1. config and logger
//  2. database (embedded migrations)
//  3. repositories
//  4. websocket hub, optional Redis backplane
//  5. services, handlers, routes
//  6. HTTP server and graceful shutdown
//
// There are no package-level globals; everything is built here.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/database"
	"github.com/bookshelf/server/pkg/logger"
	"github.com/bookshelf/server/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("bookshelf server starting", zap.String("env", cfg.Env), zap.Int("port", cfg.Server.Port))

	migrations, err := database.Migrations()
	if err != nil {
		return err
	}
	db, err := database.New(cfg.Database.Path, migrations, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos := initRepositories(db.Conn)

	rt, err := initRealtime(ctx, cfg, repos, m, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	svcs, err := initServices(ctx, cfg, db.Conn, repos, rt.Hub, m, log)
	if err != nil {
		return err
	}

	h := initHandlers(cfg, repos, svcs, rt.Hub)
	defer h.Close()

	mux := http.NewServeMux()
	initRoutes(mux, cfg, h, svcs.Auth, repos.User)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           corsHandler.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down")

	// Close sockets first so their pumps stop before the server drains.
	rt.Hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
