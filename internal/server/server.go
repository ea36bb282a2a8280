/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/weatherslots/internal/api"
	"github.com/friendsincode/weatherslots/internal/config"
	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/logbuffer"
	"github.com/friendsincode/weatherslots/internal/reveal"
	"github.com/friendsincode/weatherslots/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server

	bus       *events.Bus
	registry  *reveal.Registry
	logBuffer *logbuffer.Buffer

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	profiles, err := reveal.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if _, err := profiles.Lookup(cfg.RevealProfile); err != nil {
		return nil, fmt.Errorf("default reveal profile: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("weatherslots-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Event streams are long-lived; everything else gets a request deadline.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	bus := events.NewBus()
	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       bus,
		logBuffer: logBuf,
		registry: reveal.NewRegistry(reveal.RegistryConfig{
			Profiles:       profiles,
			DefaultProfile: cfg.RevealProfile,
			MinPct:         cfg.MinRainPercent,
			MaxPct:         cfg.MaxRainPercent,
			IdleTTL:        cfg.SessionIdleTTL,
			SweepInterval:  cfg.SessionSweepInterval,
		}, bus, logger),
	}

	api.New(srv.registry, bus, logBuf, logger).Routes(router)
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 for event streams; the middleware timeout covers the rest.
		IdleTimeout: 60 * time.Second,
	}
	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	logger.Info().
		Str("profile", cfg.RevealProfile).
		Float64("min_rain_percent", cfg.MinRainPercent).
		Float64("max_rain_percent", cfg.MaxRainPercent).
		Msg("server configured")
	return srv, nil
}

// HTTPServer exposes the API server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the API server and, when configured, the metrics server.
func (s *Server) ListenAndServe() error {
	if s.metricsServer != nil {
		go func() {
			s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops listeners and background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	s.stopBackgroundWorkers()
	return errors.Join(errs...)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.registry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("session sweeper exited")
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; connect-src 'self' ws: wss:; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
