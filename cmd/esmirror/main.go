package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esmirror/internal/config"
	logpkg "github.com/kailas-cloud/esmirror/internal/logger"
	"github.com/kailas-cloud/esmirror/internal/metrics"
	"github.com/kailas-cloud/esmirror/internal/mirror"
	"github.com/kailas-cloud/esmirror/internal/supervisor"
	chiTransport "github.com/kailas-cloud/esmirror/internal/transport/chi"
	"github.com/kailas-cloud/esmirror/internal/transport/elastic"
	documentuc "github.com/kailas-cloud/esmirror/internal/usecase/document"
	healthuc "github.com/kailas-cloud/esmirror/internal/usecase/health"
	loaderuc "github.com/kailas-cloud/esmirror/internal/usecase/loader"
	"github.com/kailas-cloud/esmirror/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	// run returns errors rather than exiting, so its deferred cleanup runs.
	if err := run(env, cfg, logger); err != nil {
		logger.Error("esmirror exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting esmirror API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_url", cfg.Search.URL),
		zap.Bool("server_enabled", cfg.Server.Enabled),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	transport, err := elastic.NewClient(elastic.Config{
		URL:      cfg.Search.URL,
		Username: cfg.Search.Username,
		Password: cfg.Search.Password,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create search client: %w", err)
	}
	defer transport.Close()

	ctx := context.Background()

	// Optional local server. Pass nil interface (not typed nil pointer!) when disabled.
	var serverChecker healthuc.ServerChecker
	if cfg.Server.Enabled {
		sup, err := supervisor.New(supervisor.Config{
			Home:           cfg.Server.Home,
			PIDFile:        cfg.Server.PIDFile,
			StartupTimeout: time.Duration(cfg.Server.StartupTimeoutSec) * time.Second,
		}, transport, logger)
		if err != nil {
			return fmt.Errorf("invalid server installation: %w", err)
		}
		if err := sup.Start(ctx); err != nil {
			return fmt.Errorf("start search server: %w", err)
		}
		defer func() {
			if err := sup.Stop(); err != nil {
				logger.Error("Failed to stop search server", zap.Error(err))
			}
		}()
		serverChecker = sup
	}

	if cfg.Search.ReadinessTimeout > 0 {
		if err := transport.WaitForReady(ctx, time.Duration(cfg.Search.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("search service not ready: %w", err)
		}
		logger.Info("Connected to search service")
	}

	// Create use case services
	m := mirror.New()
	docSvc := documentuc.New(m, transport).WithMirrorGauge(metrics.MirrorDocuments)
	loadSvc := loaderuc.New(docSvc).WithBaseDir(cfg.Loader.BaseDir)
	healthSvc := healthuc.New(transport, serverChecker)

	loadCtx := logpkg.ContextWithLogger(ctx, logger)
	for _, file := range cfg.Loader.Files {
		stats, err := loadSvc.Load(loadCtx, file)
		if err != nil {
			return fmt.Errorf("bulk load %s: %w", loadSvc.Resolve(file), err)
		}
		logger.Info("Bulk load finished",
			zap.String("file", file),
			zap.Int("records", stats.Records),
		)
	}

	// Create chi server
	server := chiTransport.NewServer(docSvc, m, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
