package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vchukka/finsense/internal/archive"
	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/jobs"
	"github.com/vchukka/finsense/internal/jobs/inmemory"
	"github.com/vchukka/finsense/internal/llm"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/notion"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/statement"
	"github.com/vchukka/finsense/internal/store/postgres"
)

func main() {
	var (
		interval = flag.Duration("interval", time.Hour, "time between scheduled Notion syncs")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.New(cfg.LogLevel), "worker")

	if err := cfg.RequireNotion(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	txRepo := postgres.NewTransactionRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)

	var (
		classifier pipeline.Classifier
		pdf        statement.PDFExtractor
	)
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewClient(ctx, llm.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.ModelName,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create model client")
		}
		classifier, pdf = client, client
	} else {
		log.Warn().Msg("No Gemini API key configured - model fallbacks are disabled")
	}

	var (
		archiver *archive.Store
		arch     notion.Archiver
	)
	if cfg.ArchiveBucket != "" {
		archiver, err = archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open statement archive")
		}
		defer archiver.Close()
		arch = archiver
	}

	statements := pipeline.NewStatementImportPipeline(statement.AutoExtractor{PDF: pdf}, ruleRepo, classifier, txRepo)
	lines := pipeline.NewLineImportPipeline(ruleRepo, classifier, txRepo)

	syncer := notion.NewSyncer(notion.NewClient(cfg.NotionToken), txRepo, statements, lines, arch, notion.Config{
		TransactionsDB: cfg.NotionTransactionsDB,
		UploadsDB:      cfg.NotionUploadsDB,
		SyncLogDB:      cfg.NotionSyncLogDB,
		UserID:         cfg.DefaultUserID,
	})

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.WorkerCount, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncJob)
		if !ok || syncJob.Type != jobs.JobTypeSyncNotion {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		report, err := syncer.Sync(ctx)
		if err != nil {
			return fmt.Errorf("notion sync: %w", err)
		}
		log.Info().
			Str("job_id", syncJob.JobID).
			Int("imported", report.Imported).
			Int("duplicates", report.Duplicates).
			Int("pending", report.Pending).
			Msg("Sync job completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().
		Dur("interval", *interval).
		Int("workers", cfg.WorkerCount).
		Msg("Worker service started")

	// First sync right away, then on the ticker.
	enqueueSync(ctx, jobQueue, cfg.DefaultUserID, log)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			enqueueSync(ctx, jobQueue, cfg.DefaultUserID, log)
		case <-quit:
			log.Info().Msg("Shutting down worker service...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := jobQueue.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error during graceful shutdown")
			}
			cancel()

			log.Info().Msg("Worker service exited")
			return
		}
	}
}

func enqueueSync(ctx context.Context, queue jobs.Publisher, userID string, log zerolog.Logger) {
	job := &jobs.SyncJob{
		Type:    jobs.JobTypeSyncNotion,
		Trigger: jobs.TriggerSchedule,
		UserID:  userID,
	}
	if err := queue.PublishSync(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue sync job")
		return
	}
	log.Info().Str("job_id", job.JobID).Msg("Sync job enqueued")
}
