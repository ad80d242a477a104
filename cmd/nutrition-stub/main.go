// Command nutrition-stub serves the in-memory nutrition API for local
// development.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nutritrack/nutrition-core/internal/config"
	"github.com/nutritrack/nutrition-core/internal/metrics"
	"github.com/nutritrack/nutrition-core/internal/stubapi"
)

func main() {
	configPath := flag.String("config", "", "config file (default config/nutrition.yaml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	seedFile := flag.String("seed", "", "YAML seed file (overrides server.seed_file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *seedFile != "" {
		cfg.Server.SeedFile = *seedFile
	}

	logger := cfg.Logger("nutrition-stub")

	if cfg.Server.JWTSecret == "" {
		logger.Warn("server.jwt_secret not set; tokens will not survive a restart")
	}

	srv, err := stubapi.New(stubapi.Config{
		JWTSecret:      []byte(cfg.Server.JWTSecret),
		TokenTTL:       cfg.Server.TokenTTL,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Metrics:        metrics.NewCollector(cfg.Server.Metrics),
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	seed := stubapi.DefaultSeed()
	if cfg.Server.SeedFile != "" {
		if seed, err = stubapi.LoadSeed(cfg.Server.SeedFile); err != nil {
			log.Fatalf("Failed to load seed: %v", err)
		}
	}
	if err := srv.ApplySeed(seed); err != nil {
		log.Fatalf("Failed to apply seed: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":   cfg.Server.Addr,
			"prefix": srv.Prefix(),
		}).Info("Stub API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
