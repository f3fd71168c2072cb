// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sprint-estimator/internal/config"
	"sprint-estimator/internal/domain/ports/adapter"
	aiAdapters "sprint-estimator/internal/infra/adapters/ai"
	gh "sprint-estimator/internal/infra/adapters/github"
	"sprint-estimator/internal/infra/adapters/jira"
	"sprint-estimator/internal/infra/jobs"
	"sprint-estimator/internal/infra/logging"
	"sprint-estimator/internal/infra/metrics"
	red "sprint-estimator/internal/infra/redis"
	"sprint-estimator/internal/infra/web"
	"sprint-estimator/internal/infra/worker"
	"sprint-estimator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Redis (optional sprint cache) ----
	var cache *red.SprintCache
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		cache = red.NewSprintCache(redisClient, cfg.Redis.TTL)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("sprint cache: redis")
	} else {
		logger.Warn().Msg("redis.url not set; sprint history is fetched on every run")
	}

	// ---- Tracker and code host adapters ----
	jiraClient := jira.NewClient(cfg.Jira, logger)
	var codeHost adapter.CodeHostSource
	if cfg.GitHub.Token != "" {
		codeHost = gh.NewClient(cfg.GitHub.Token, logger)
	} else {
		logger.Warn().Msg("github.token not set; PR investigation tools return empty results")
	}

	// ---- AI providers ----
	var gemini *aiAdapters.GeminiAdapter
	var openai *aiAdapters.OpenAIAdapter
	if cfg.AI.GeminiKey != "" {
		gemini, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI provider: Gemini")
	}
	if cfg.AI.OpenAIKey != "" {
		openai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI provider: OpenAI")
	}
	multi, err := aiAdapters.NewMultiAdapter(gemini, openai, cfg.AI.DefaultModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai adapter")
	}

	// ---- Job store and TTL sweeper ----
	store := jobs.NewMemoryStore(cfg.Estimation.JobTTL)
	go func() {
		ticker := time.NewTicker(cfg.Estimation.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Sweep(ctx, cfg.Estimation.JobTTL); n > 0 {
					metrics.JobsSwept(n)
					logger.Debug().Int("swept", n).Msg("expired jobs removed")
				}
			}
		}
	}()

	// ---- Use cases ----
	builder := usecase.NewContextBuilder(jiraClient, cache, logger)
	executor := usecase.NewToolExecutor(jiraClient, codeHost, logger)
	estimator := usecase.NewEstimateUseCase(
		multi, executor, store, builder,
		usecase.DefaultBudgets(), cfg.AI.DefaultModel, cfg.Estimation.SprintCount, logger,
	)

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Server.Workers, logger)
	pool.Start(ctx)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.AuthSecret, cfg.Server.SecureCookies, cfg.Server.SessionTTL)
	srv := web.NewServer(estimator, store, pool, auth, cfg.Server.AuthPassword, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	pool.Stop()
}
