package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/aurablacklight/docker-dive-web-ui/cmd/api/config"
	"github.com/aurablacklight/docker-dive-web-ui/lib/inspect"
	mw "github.com/aurablacklight/docker-dive-web-ui/lib/middleware"
	"github.com/aurablacklight/docker-dive-web-ui/lib/otel"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
	slog.Info("main() exiting normally")
}

func run() error {
	// Load config early for OTel initialization
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	otelCfg := otel.Config{
		Enabled:           cfg.OtelEnabled,
		Endpoint:          cfg.OtelEndpoint,
		ServiceName:       cfg.OtelServiceName,
		ServiceInstanceID: cfg.OtelServiceInstanceID,
		Insecure:          cfg.OtelInsecure,
		Version:           cfg.Version,
		Env:               cfg.Env,
	}

	otelProvider, otelShutdown, err := otel.Init(context.Background(), otelCfg)
	if err != nil {
		// Log warning but don't fail - graceful degradation
		slog.Warn("failed to initialize OpenTelemetry, continuing without telemetry", "error", err)
	}
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				slog.Warn("error shutting down OpenTelemetry", "error", err)
			}
		}()
	}

	// Set global OTel log handler for logger package
	if otelProvider != nil && otelProvider.LogHandler != nil {
		otel.SetGlobalLogHandler(otelProvider.LogHandler)
	}

	// Initialize app with wire
	app, cleanup, err := initializeApp()
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		slog.Info("cleaning up application resources")
		cleanup()
	}()

	ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.Logger

	if cfg.OtelEnabled {
		logger.Info("OpenTelemetry enabled", "endpoint", cfg.OtelEndpoint, "service", cfg.OtelServiceName)
	}
	if app.Config.JWTSecret == "" {
		logger.Warn("JWT_SECRET not configured - inspection endpoints are unauthenticated")
	}

	// Fail fast when the engine socket never comes up; dive needs it
	// for every analysis.
	logger.Info("waiting for Docker engine", "timeout", cfg.EngineWaitTimeout)
	if err := app.DockerClient.WaitReady(ctx, cfg.EngineWaitTimeout); err != nil {
		return fmt.Errorf("docker engine not reachable: %w", err)
	}
	logger.Info("Docker engine ready")

	// Register inspection metrics if OTel is enabled
	if otelProvider != nil && otelProvider.Meter != nil {
		if err := inspect.InitMetrics(otelProvider.Meter, app.InspectManager); err != nil {
			logger.Warn("failed to register inspection metrics", "error", err)
		}
	}

	// Create router
	r := chi.NewRouter()

	// Prepare HTTP metrics middleware (applied inside API group, not globally)
	// Global application breaks WebSocket (Hijacker)
	var httpMetricsMw func(http.Handler) http.Handler
	if otelProvider != nil && otelProvider.Meter != nil {
		httpMetrics, err := mw.NewHTTPMetrics(otelProvider.Meter)
		if err == nil {
			httpMetricsMw = httpMetrics.Middleware
		}
	}

	// Progress endpoint (WebSocket)
	// Note: no otelchi here as WebSocket doesn't work well with tracing middleware
	r.With(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		mw.InjectLogger(logger),
		mw.AccessLogger(logger),
	).Get("/api/inspect/{imageName}/progress", app.ApiService.ProgressHandler)

	r.Route("/api/inspect", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)

		// OpenTelemetry tracing middleware FIRST (creates span context)
		if cfg.OtelEnabled {
			r.Use(otelchi.Middleware(cfg.OtelServiceName, otelchi.WithChiRoutes(r)))
		}

		r.Use(mw.InjectLogger(logger))

		// Access logger AFTER otelchi so trace context is available
		r.Use(mw.AccessLogger(logger))
		if httpMetricsMw != nil {
			r.Use(httpMetricsMw)
		}

		r.Get("/health", app.ApiService.HealthHandler)
		r.Get("/{imageName}/status", app.ApiService.StatusHandler)

		// Starting an inspection mutates engine state (pulls images),
		// so it is the one route behind auth.
		r.With(mw.BearerAuth(app.Config.JWTSecret)).
			Post("/{imageName}", app.ApiService.InspectHandler)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", app.Config.Port),
		Handler: r,
	}

	// Error group for coordinated shutdown
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		logger.Info("starting dive UI API", "port", app.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			return err
		}
		return nil
	})

	grp.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Use WithoutCancel to preserve context values while preventing cancellation
		shutdownCtx := context.WithoutCancel(gctx)
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err)
			return err
		}
		logger.Info("http server shutdown complete")
		return nil
	})

	err = grp.Wait()
	slog.Info("all goroutines finished")
	return err
}
