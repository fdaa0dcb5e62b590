package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cadence/internal/cache"
	"cadence/internal/config"
	"cadence/internal/database"
	"cadence/internal/email"
	"cadence/internal/embeddings"
	"cadence/internal/insights"
	"cadence/internal/jobs"
	"cadence/internal/normalize"
	"cadence/internal/openai"
	"cadence/internal/pipeline"
	"cadence/internal/providers"
	"cadence/internal/resolver"
	"cadence/internal/scheduler"
	"cadence/internal/store"
	"cadence/internal/timeline"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established successfully")

	st := store.New(db)
	queue := jobs.NewQueue(db, cfg.MaxAttempts, time.Duration(cfg.StaleAfterMins)*time.Minute)

	// The embedding and insight stages need the external capability
	ai, err := openai.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("OpenAI client initialization failed")
	}

	// Optional Qdrant mirror for approximate-nearest-neighbor search
	var mirror embeddings.VectorMirror
	if cfg.UseQdrant() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		qdrantMirror, err := embeddings.NewQdrantMirror(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Qdrant mirror unavailable, continuing without it")
		} else {
			mirror = qdrantMirror
		}
	}

	// Provider sync adapters
	var syncClients []providers.Client
	if cfg.ProviderGatewayURL != "" {
		for _, provider := range cfg.EnabledProviders() {
			syncClients = append(syncClients,
				providers.NewGatewayClient(provider, cfg.ProviderGatewayURL, cfg.ProviderGatewayToken))
		}
	} else {
		logger.Warn().Msg("PROVIDER_GATEWAY_URL not set, provider sync disabled")
	}

	// Pipeline stages
	normalizers := normalize.NewRegistry(
		normalize.NewMailNormalizer(),
		normalize.NewCalendarNormalizer(),
	)
	res := resolver.New(st, resolver.NewNameScorer(), cfg.ResolveThreshold)
	embedder := embeddings.NewGenerator(ai, st, mirror,
		cfg.ChunkSize, cfg.ChunkOverlap, cfg.EmbedBatchSize, cfg.EmbedConcurrency)
	quota := insights.NewQuotaGuard(cache.New(), cfg.InsightsPerMinute, cfg.InsightsPerDay)
	insightGen := insights.NewGenerator(ai, st, quota)
	timelineWriter := timeline.NewWriter(st)

	pipe := pipeline.New(st, providers.NewRegistry(syncClients...), normalizers,
		res, embedder, insightGen, timelineWriter, logger)

	alerter := email.NewAlertService(cfg.SendGridAPIKey, cfg.OperatorEmail)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scheduled provider sync
	sched := scheduler.New(queue, cfg.SyncSchedule, cfg.EnabledProviders(), cfg.SyncUsers(), logger)
	if len(cfg.SyncUsers()) > 0 && cfg.ProviderGatewayURL != "" {
		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Sync scheduler failed to start")
		}
		defer sched.Stop()
	}

	// Polling workers
	hostname, _ := os.Hostname()
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-%d", hostname, i)
		runner := jobs.NewRunner(queue, st, alerter, workerID,
			cfg.ClaimBatchSize,
			time.Duration(cfg.PollIntervalSecs)*time.Second,
			time.Duration(cfg.JobBudgetMinutes)*time.Minute,
			logger)
		pipe.Register(runner)

		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}

	logger.Info().Int("workers", cfg.WorkerCount).Msg("Worker pool started")
	wg.Wait()
	logger.Info().Msg("Worker pool stopped")
}
