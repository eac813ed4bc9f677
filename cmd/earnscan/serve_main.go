package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/metrics"
	"github.com/earnscan/earnscan/internal/net/ratelimit"
	"github.com/earnscan/earnscan/internal/scan"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose Prometheus metrics and health endpoints",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "Listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	addr := cfg.Server.ListenAddr
	if flagAddr, _ := cmd.Flags().GetString("listen"); flagAddr != "" {
		addr = flagAddr
	}

	limiter := ratelimit.NewLimiter()
	limiter.SetBudget(scan.ProviderName, cfg.Providers.RateRPS, cfg.Providers.RateBurst)

	registry := metrics.NewRegistry()
	server := metrics.NewServer(addr, registry, func() map[string]interface{} {
		return map[string]interface{}{"rate_limits": limiter.Stats()}
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
