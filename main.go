package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"todo-api/api"
	"todo-api/config"
	"todo-api/domain"
	"todo-api/storage"
)

const connectTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TraceRatio))),
	)
	otel.SetTracerProvider(tp)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	store, err := storage.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	logger.WithField("backend", cfg.Store.Backend).Info("task store ready")

	var opts []domain.Option
	if cfg.StrictReorder {
		opts = append(opts, domain.WithStrictReorder())
	}
	tasks, err := domain.NewTaskService(store, opts...)
	if err != nil {
		logger.Fatalf("service: %v", err)
	}

	var (
		deduper api.Deduper
		rc      *redis.Client
	)
	if cfg.RedisConn != "" {
		rc = redis.NewClient(redisOptions(cfg.RedisConn))
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.CORSOrigins)))
	e.Use(api.GzipRequestMiddleware())
	e.Use(api.RequestTelemetry(logger))
	if cfg.MetricsEnabled {
		e.Use(echoprometheus.NewMiddleware("todo_api"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}
	api.Register(e, tasks, store, deduper, logger)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	<-stop
	logger.Info("shut down signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}
	if rc != nil {
		if err := rc.Close(); err != nil {
			logger.WithError(err).Warn("redis close failed")
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("store close failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracer shutdown failed")
	}
	logger.Info("shut down gracefully")
}

func newLogger(cfg config.Config) *log.Logger {
	logger := log.StandardLogger()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// corsConfig allows credentials only for an explicit origin list; browsers
// reject credentialed responses for a wildcard origin.
func corsConfig(origins []string) middleware.CORSConfig {
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	cfg := middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding, "Idempotency-Key"},
	}
	if wildcard {
		cfg.AllowOrigins = []string{"*"}
	} else {
		cfg.AllowCredentials = true
	}
	return cfg
}

// redisOptions accepts a redis:// URL or an Azure-style
// "host:port,password=...,ssl=True" connection string.
func redisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
