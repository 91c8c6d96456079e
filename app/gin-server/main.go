package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yoockh/studybuddy/config"
	"github.com/yoockh/studybuddy/internal/api/handlers"
	"github.com/yoockh/studybuddy/internal/api/middleware"
	"github.com/yoockh/studybuddy/internal/api/routes"
	"github.com/yoockh/studybuddy/internal/app"
	"github.com/yoockh/studybuddy/internal/logger"
	"github.com/yoockh/studybuddy/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalf("config error: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer a.Close()

	if err := a.StartWorkers(ctx); err != nil {
		log.Fatalf("worker init error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, "/ping", "/metrics"))

	routes.RegisterRoutes(r, routes.Deps{
		Sessions: a.Sessions,
		Session:  handlers.NewSessionHandler(a.Sessions),
		Chat:     handlers.NewChatHandler(a.Chat, a.Store),
		WS:       handlers.NewWSHandler(a.Sessions, a.Chat, a.Store, log),
		Metrics:  observability.MetricsHandler(prometheus.Gatherer(a.Registry)),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
