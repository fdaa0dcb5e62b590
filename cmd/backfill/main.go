package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cadence/internal/config"
	"cadence/internal/database"
	"cadence/internal/jobs"
	"cadence/internal/replay"
	"cadence/internal/store"
)

func main() {
	// Parse command line flags
	providersFlag := flag.String("providers", "", "Comma-separated providers to replay (empty = all)")
	days := flag.Int("days", 30, "Historical window in days")
	batchSize := flag.Int("batch-size", 100, "Raw events per page while enqueueing")
	dryRun := flag.Bool("dry-run", false, "Preview only, write nothing")
	flag.Parse()

	if *days <= 0 {
		fmt.Println("Usage:")
		fmt.Println("  Preview a replay:  backfill -providers mail -days 90 -dry-run")
		fmt.Println("  Run a replay:      backfill -providers mail,calendar -days 90")
		os.Exit(1)
	}

	var providers []string
	for _, p := range strings.Split(*providersFlag, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, p)
		}
	}

	// Load configuration
	cfg := config.Load()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	st := store.New(db)
	queue := jobs.NewQueue(db, cfg.MaxAttempts, time.Duration(cfg.StaleAfterMins)*time.Minute)
	ctrl := replay.NewController(st, queue)

	req := replay.Request{
		Providers: providers,
		Days:      *days,
		BatchSize: *batchSize,
		DryRun:    *dryRun,
	}

	ctx := context.Background()

	if *dryRun {
		preview, err := ctrl.Preview(ctx, req)
		if err != nil {
			log.Fatalf("Preview failed: %v", err)
		}
		fmt.Printf("Dry run: %d raw events since %s would be replayed in %d batches\n",
			preview.TotalEvents, preview.Since.Format("2006-01-02"), preview.BatchesPlanned)
		for provider, count := range preview.ByProvider {
			fmt.Printf("  %s: %d\n", provider, count)
		}
		return
	}

	run, err := ctrl.Start(ctx, req)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	fmt.Printf("Replay batch %s started: %d events, %d jobs enqueued\n",
		run.BatchID, run.EventsFound, run.JobsEnqueued)
	fmt.Printf("Check progress: GET /api/admin/replay/%s\n", run.BatchID)
}
