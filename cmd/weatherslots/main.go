/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/weatherslots/internal/config"
	"github.com/friendsincode/weatherslots/internal/logbuffer"
	"github.com/friendsincode/weatherslots/internal/logging"
	"github.com/friendsincode/weatherslots/internal/server"
	"github.com/friendsincode/weatherslots/internal/telemetry"
	"github.com/friendsincode/weatherslots/internal/version"
)

var (
	logger    zerolog.Logger
	cfg       *config.Config
	logBuffer *logbuffer.Buffer
)

var rootCmd = &cobra.Command{
	Use:   "weatherslots",
	Short: "Weather slot machine for race sessions",
	Long:  "weatherslots rolls a nine-slot rain forecast from a percentage band and reveals it slot by slot on a timed schedule.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the weatherslots server",
	Long:  "Start the HTTP API, session event streams, and the idle session sweeper",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "weatherslots %s (%s, %s)\n", info.Version, info.GoVersion, info.Revision)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuffer = logbuffer.New(cfg.LogBufferSize)
	logger = logging.SetupWithWriter(cfg.Environment, os.Stdout, logbuffer.NewWriter(logBuffer))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("weatherslots starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "weatherslots",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logBuffer, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("weatherslots stopped")
	return nil
}
