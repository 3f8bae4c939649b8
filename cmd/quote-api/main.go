package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titlequote/internal/common/auth"
	"titlequote/internal/common/config"
	"titlequote/internal/common/database"
	"titlequote/internal/common/logger"
	"titlequote/internal/common/observability"
	"titlequote/internal/lookup"
	"titlequote/internal/orchestrator"
	"titlequote/internal/quickquote"
	"titlequote/internal/ratesvc"
	"titlequote/internal/server"
	"titlequote/internal/session"
)

// cooldown before the session-store circuit breaker retries Redis.
const storeBreakerCooldown = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting quote service", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New("quote-api")
	defer obs.Shutdown()

	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.WithError(err).Error("failed to create redis client", nil)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Redis being down at boot is not fatal: the fallback store carries
	// sessions until it recovers.
	if err := retryWithBackoff(3, time.Second, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}); err != nil {
		log.WithError(err).Warn("redis unreachable at startup, sessions will fall back to memory", nil)
	}

	sessionTTL := time.Duration(cfg.Quote.SessionTTL) * time.Second
	memoryStore := session.NewMemoryStore(sessionTTL)
	store := session.NewFallbackStore(
		session.NewRedisStore(redisClient, sessionTTL),
		memoryStore,
		storeBreakerCooldown,
		log,
	)

	tokens := auth.NewClientCredentialsProvider(
		cfg.RateService.TokenURL,
		cfg.RateService.ClientID,
		cfg.RateService.ClientSecret,
	)
	rates := ratesvc.NewClient(cfg.RateService.BaseURL, config.GetDuration(cfg.RateService.Timeout), tokens, log)
	resolver := lookup.NewService(redisClient, log)

	roundBudget := config.GetDuration(cfg.RateService.RoundBudget)
	orch := orchestrator.New(store, rates, resolver, obs, log, roundBudget)
	quick := quickquote.NewService(rates, resolver, log, roundBudget)

	srv := server.New(cfg.HTTP, orch, quick, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := session.NewSweeper(memoryStore, time.Duration(cfg.Quote.SweepInterval)*time.Second, log)
	go sweeper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server failed", nil)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed", nil)
	}
	log.Info("quote service stopped", nil)
}

func retryWithBackoff(attempts int, initial time.Duration, fn func() error) error {
	var err error
	delay := initial
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
