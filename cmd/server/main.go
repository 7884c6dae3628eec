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

	"github.com/joho/godotenv"
	"github.com/mmuslimabdulj/campus-realtime/internal/config"
	httpHandler "github.com/mmuslimabdulj/campus-realtime/internal/delivery/http"
	"github.com/mmuslimabdulj/campus-realtime/internal/delivery/ws"
	"github.com/mmuslimabdulj/campus-realtime/internal/middleware"
	"github.com/mmuslimabdulj/campus-realtime/internal/observability"
	"github.com/mmuslimabdulj/campus-realtime/internal/persistence"
	"github.com/mmuslimabdulj/campus-realtime/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.NewLogger()

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	writer := persistence.NewWriter(db, log, metrics, persistence.Options{
		QueueSize:   cfg.PersistQueueSize,
		MaxAttempts: cfg.PersistAttempts,
	})
	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()
	go writer.Run(writerCtx)

	opts := ws.DefaultOptions()
	opts.CallInviteTimeout = cfg.CallInviteTimeout
	opts.CallRetention = cfg.CallRetention
	opts.ResumeGrace = cfg.ResumeGrace
	opts.DedupeWindow = cfg.DedupeWindow
	opts.MaxMessageSize = int64(cfg.MaxMessageSize)
	opts.SendBufferSize = cfg.SendBufferSize
	opts.EventRate = cfg.RateLimitEvents
	opts.EventBurst = cfg.RateLimitEventsBurst

	hub := ws.NewHub(opts, writer, log, metrics)

	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	convs, err := db.LoadConversations(loadCtx)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	hub.LoadConversations(convs)
	go hub.Run(ctx)

	apiLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAPI, max(1, 2*int(cfg.RateLimitAPI)))
	wsLimiter := middleware.NewIPRateLimiter(cfg.RateLimitWS, max(1, 2*int(cfg.RateLimitWS)))
	defer apiLimiter.Close()
	defer wsLimiter.Close()

	handler := httpHandler.NewHandler(hub, db, cfg, log)
	mux := handler.Routes(apiLimiter, wsLimiter, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.SecurityHeaders(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Realtime hub listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			hub.Close()
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown
	hub.Close()

	// Flush queued writes before the database closes
	stopWriter()
	select {
	case <-writer.Done():
	case <-shutdownCtx.Done():
		log.Warn("Persistence queue not drained", "pending", writer.Pending())
	}

	log.Info("Server exited gracefully")
	return nil
}
