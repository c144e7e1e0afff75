package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/vchukka/finsense/internal/archive"
	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/llm"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/notion"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/statement"
	"github.com/vchukka/finsense/internal/store/postgres"
)

func main() {
	var (
		user        = flag.String("user", "", "user ID the imported rows belong to (overrides DEFAULT_USER_ID)")
		skipUploads = flag.Bool("skip-uploads", false, "sync only the manual transaction rows, not the uploaded statements")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.NewConsole(cfg.LogLevel)

	if err := cfg.RequireNotion(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	userID := cfg.DefaultUserID
	if *user != "" {
		userID = *user
	}

	// One sync run, bounded so the CLI never hangs.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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

	var arch notion.Archiver
	if cfg.ArchiveBucket != "" {
		store, err := archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open statement archive")
		}
		defer store.Close()
		arch = store
	}

	uploadsDB := cfg.NotionUploadsDB
	if *skipUploads {
		uploadsDB = ""
	}

	statements := pipeline.NewStatementImportPipeline(statement.AutoExtractor{PDF: pdf}, ruleRepo, classifier, txRepo)
	lines := pipeline.NewLineImportPipeline(ruleRepo, classifier, txRepo)

	syncer := notion.NewSyncer(notion.NewClient(cfg.NotionToken), txRepo, statements, lines, arch, notion.Config{
		TransactionsDB: cfg.NotionTransactionsDB,
		UploadsDB:      uploadsDB,
		SyncLogDB:      cfg.NotionSyncLogDB,
		UserID:         userID,
	})

	log.Info().Str("user_id", userID).Msg("Starting Notion sync")

	report, err := syncer.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d statements, %d rows, %d imported, %d duplicates, %d pending, %d failed, %d categories written back.\n",
		report.PDFs, report.Rows, report.Imported, report.Duplicates,
		report.Pending, report.Failed, report.CategoriesWritten)
}
