package main

import (
	"time"

	"cadence/internal/config"
	"cadence/internal/database"
	"cadence/internal/jobs"
	"cadence/internal/openai"
	"cadence/internal/replay"
	"cadence/internal/server"
	"cadence/internal/store"
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
	replayCtrl := replay.NewController(st, queue)

	// The embedding capability backs query-time semantic search only; admin
	// surfaces work without it.
	ai, err := openai.NewClient(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("OpenAI client unavailable, semantic search disabled")
		ai = nil
	}

	// Create and initialize server
	srv := server.New(cfg, st, ai, replayCtrl, queue, logger)
	srv.Initialize()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
