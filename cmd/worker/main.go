// Command worker consumes background tasks and runs the daily jobs without
// serving HTTP. It needs a shared queue backend (redis or kafka).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mindwellAPI/config"
	"mindwellAPI/internal/app"
	"mindwellAPI/internal/logger"
	"mindwellAPI/middleware"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer zlog.Sync()

	if cfg.QueueBackend == "memory" {
		zlog.Fatal("the worker needs QUEUE_BACKEND=redis or kafka")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(bootCtx, cfg, zlog)
	cancel()
	if err != nil {
		zlog.Fatal("failed to initialize", "error", err)
	}
	defer a.Close()

	pool, sched, err := a.Workers()
	if err != nil {
		zlog.Fatal("failed to configure workers", "error", err)
	}

	metrics := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error("metrics server failed", "error", err)
		}
	}()

	pool.Start(ctx)
	sched.Start(ctx)
	zlog.Info("worker started", "concurrency", cfg.WorkerConcurrency, "queue", cfg.QueueBackend)

	<-ctx.Done()
	zlog.Info("shutdown signal received")

	pool.Stop()
	sched.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metrics.Shutdown(shutdownCtx)

	zlog.Info("worker stopped")
}
