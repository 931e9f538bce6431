package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/alcortex/emr/internal/domain/diagnosis"
	"github.com/alcortex/emr/internal/platform/db"
	"github.com/alcortex/emr/internal/platform/middleware"
	"github.com/alcortex/emr/internal/platform/report"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newServer builds the echo instance with middleware and routes.
func newServer(a *app, svc *diagnosis.Service) *echo.Echo {
	cfg := a.cfg
	logger := a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader, middleware.PractitionerHeader},
		ExposeHeaders: []string{"Content-Disposition", "X-Content-SHA256", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.ImageBodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/health"))
	}

	e.GET("/health", db.HealthHandler(cfg.Version, a.checks...))

	apiV1 := e.Group("/api/v1",
		middleware.Session(a.users, cfg.DefaultPractitionerID),
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
		middleware.Audit(logger, nil),
	)

	diagnosis.NewHandler(svc, logger).RegisterRoutes(apiV1)
	report.NewHandler(a.assembler(), svc, a.archive, cfg.ProductName, logger).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if cfg.DefaultPractitionerID != "" {
		logger.Warn().Str("practitioner_id", cfg.DefaultPractitionerID).
			Msg("DEFAULT_PRACTITIONER_ID is set: requests without X-Practitioner-ID act as this practitioner")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		return err
	}
	defer a.close()

	svc, err := a.service()
	if err != nil {
		return err
	}
	e := newServer(a, svc)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
