package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vchukka/finsense/internal/api/handlers"
	"github.com/vchukka/finsense/internal/api/middleware"
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
	"github.com/vchukka/finsense/internal/summary"
)

func main() {
	var (
		addr = flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	)
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	txRepo := postgres.NewTransactionRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	// The model is optional. Without it imports fall back to keyword rules
	// and summaries to the phrase parser.
	var (
		classifier pipeline.Classifier
		parser     summary.QueryParser
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
		classifier, parser, pdf = client, client, client
	} else {
		log.Warn().Msg("No Gemini API key configured - model fallbacks are disabled")
	}

	var archiver *archive.Store
	if cfg.ArchiveBucket != "" {
		archiver, err = archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open statement archive")
		}
		defer archiver.Close()
	} else {
		log.Warn().Msg("No GCS bucket configured - statement archiving is disabled")
	}

	extractor := statement.AutoExtractor{PDF: pdf}
	statements := pipeline.NewStatementImportPipeline(extractor, ruleRepo, classifier, txRepo)
	lines := pipeline.NewLineImportPipeline(ruleRepo, classifier, txRepo)
	summaries := summary.New(txRepo, profileRepo, parser)

	var syncer *notion.Syncer
	if cfg.NotionToken != "" {
		var arch notion.Archiver
		if archiver != nil {
			arch = archiver
		}
		syncer = notion.NewSyncer(notion.NewClient(cfg.NotionToken), txRepo, statements, lines, arch, notion.Config{
			TransactionsDB: cfg.NotionTransactionsDB,
			UploadsDB:      cfg.NotionUploadsDB,
			SyncLogDB:      cfg.NotionSyncLogDB,
			UserID:         cfg.DefaultUserID,
		})
	} else {
		log.Warn().Msg("No Notion token configured - sync jobs will fail")
	}

	// Job infrastructure for webhook-triggered syncs and statement imports.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.WorkerCount, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		switch syncJob.Type {
		case jobs.JobTypeSyncNotion:
			if syncer == nil {
				return fmt.Errorf("notion sync is not configured")
			}
			report, err := syncer.Sync(ctx)
			if err != nil {
				return fmt.Errorf("notion sync: %w", err)
			}
			log.Info().
				Str("job_id", syncJob.JobID).
				Int("imported", report.Imported).
				Int("pending", report.Pending).
				Msg("Sync job completed")
			return nil

		case jobs.JobTypeImportStatement:
			if archiver == nil {
				return fmt.Errorf("statement archive is not configured")
			}
			data, err := archiver.Fetch(ctx, syncJob.StatementURI)
			if err != nil {
				return fmt.Errorf("fetching archived statement: %w", err)
			}
			state := &pipeline.PipelineState{
				UserID: syncJob.UserID,
				Source: archive.Filename(syncJob.StatementURI),
				Data:   data,
			}
			if err := statements.Execute(ctx, state); err != nil {
				return fmt.Errorf("importing statement: %w", err)
			}
			log.Info().
				Str("job_id", syncJob.JobID).
				Int("imported", state.Result.Imported).
				Int("duplicates", state.Result.Duplicates).
				Msg("Import job completed")
			return nil

		default:
			return fmt.Errorf("unknown job type: %s", syncJob.Type)
		}
	}

	go func() {
		log.Info().Int("workers", cfg.WorkerCount).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	syncHandler := handlers.NewSyncHandler(jobQueue, cfg.DefaultUserID, log)
	summaryHandler := handlers.NewSummaryHandler(summaries, cfg.DefaultUserID, log)
	transactionsHandler := handlers.NewTransactionsHandler(txRepo, lines, cfg.DefaultUserID, log)
	keywordsHandler := handlers.NewKeywordsHandler(ruleRepo, cfg.DefaultUserID, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Webhook endpoint, signature-checked before the handler sees the body.
	mux.Handle("/webhook/notion", middleware.VerifyNotionSignature(cfg.NotionWebhookSecret)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				syncHandler.HandleWebhook(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})))

	mux.HandleFunc("/api/v1/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			syncHandler.TriggerSync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			summaryHandler.GetSummary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			summaryHandler.PostQuery(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		// Extract transaction ID from /api/v1/transactions/{id}/category
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/transactions/")
		idStr, ok := strings.CutSuffix(rest, "/category")
		if !ok || idStr == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method == http.MethodPost {
			transactionsHandler.UpdateCategory(w, r, idStr)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/keywords", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			keywordsHandler.ListKeywords(w, r)
		case http.MethodPost:
			keywordsHandler.AddKeyword(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// RequestID runs before Logger so the request-scoped logger carries the id.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the queue before cancelling the worker context so queued jobs
	// drain instead of being abandoned.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
