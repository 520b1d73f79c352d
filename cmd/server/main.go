package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexiqai/doc-narrator/internal/config"
	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/pipeline"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/lexiqai/doc-narrator/internal/server"
	"github.com/lexiqai/doc-narrator/internal/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("grpc_port", cfg.GRPCPort).
		Str("llm_provider", cfg.LLMProvider).
		Str("llm_model", cfg.LLMModel).
		Str("tts_url", cfg.TTSAPIURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Doc Narrator service starting")

	narrator, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build narration pipeline")
	}

	store, err := storage.NewStore(cfg.OutputURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open output storage")
	}

	// Create HTTP server with timeouts. Narrations run for minutes, so there
	// is no write timeout.
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     server.New(cfg, narrator, store, logger).Routes(),
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	grpcServer, healthServer := server.NewGRPCHealthServer()
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to listen for gRPC")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/v1/narrations/stream", cfg.Port)).
			Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("port", cfg.GRPCPort).Msg("gRPC health server listening")
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Report NOT_SERVING until the speech and language endpoints answer. A
	// dependency that stays down is logged; runs then fail with its error.
	g.Go(func() error {
		wait := resilience.DefaultReconnectConfig()
		wait.MaxAttempts = cfg.StartupWaitAttempts
		if err := narrator.WaitReady(ctx, wait); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Msg("Dependencies not ready, serving anyway")
		}
		server.SetServing(healthServer, true)
		return nil
	})

	// Wait for interrupt signal to gracefully shutdown the servers
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down servers...")
		server.SetServing(healthServer, false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}

	logger.Info().Msg("Server exited gracefully")
}
