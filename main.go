package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mindwellAPI/config"
	"mindwellAPI/handlers"
	"mindwellAPI/internal/app"
	"mindwellAPI/internal/logger"
	"mindwellAPI/middleware"

	_ "net/http/pprof"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(bootCtx, cfg, zlog)
	cancel()
	if err != nil {
		zlog.Fatal("failed to initialize", "error", err)
	}
	defer func() {
		zlog.Info("closing backends")
		a.Close()
	}()

	middleware.InitPrometheus(prometheus.DefaultRegisterer)

	if err := a.Bus.StartForwarder(ctx, a.Hub.Deliver); err != nil {
		zlog.Fatal("failed to start realtime forwarder", "error", err)
	}

	if cfg.RunWorkers {
		pool, sched, err := a.Workers()
		if err != nil {
			zlog.Fatal("failed to configure workers", "error", err)
		}
		pool.Start(ctx)
		sched.Start(ctx)
		defer func() {
			pool.Stop()
			sched.Wait()
		}()
		zlog.Info("in-process workers started", "concurrency", cfg.WorkerConcurrency, "queue", cfg.QueueBackend)
	} else if cfg.QueueBackend == "memory" {
		zlog.Warn("RUN_WORKERS is off with the memory queue, background tasks will never run")
	}

	routes := &handlers.Routes{
		Users:         handlers.NewUserHandler(a.Users, zlog),
		Therapy:       handlers.NewTherapyHandler(a.Exercises, a.Achievements, a.Progress, zlog),
		Mood:          handlers.NewMoodHandler(a.Mood, zlog),
		Breathing:     handlers.NewBreathingHandler(a.Breathing, zlog),
		Chat:          handlers.NewChatHandler(a.Chat, zlog),
		ChatSocket:    handlers.NewChatSocketHandler(a.Chat, a.Hub, a.Tokens, zlog),
		Notifications: handlers.NewNotificationHandler(a.Notifications, zlog),
	}

	r := mux.NewRouter()

	routes.MountSocket(r)

	standardRouter := r.PathPrefix("/").Subrouter()

	limiter := middleware.NewRateLimiter(5, 30)
	go limiter.CleanupVisitors(ctx)

	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", handlers.Health(a.Store)).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()
	routes.MountPublic(api)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(a.Tokens))
	routes.MountProtected(protected)

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zlog.Info("starting server", "port", cfg.Port, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("error starting server", "error", err)
		}
	}()

	<-ctx.Done()
	zlog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown error", "error", err)
	}

	zlog.Info("server shutdown complete")
}
