package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/vchukka/finsense/internal/archive"
	"github.com/vchukka/finsense/internal/config"
	"github.com/vchukka/finsense/internal/llm"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/statement"
	"github.com/vchukka/finsense/internal/store/postgres"
)

func main() {
	var (
		file    = flag.String("file", "", "statement to import: local path or gs:// URI")
		user    = flag.String("user", "", "user ID the transactions belong to (overrides DEFAULT_USER_ID)")
		keep    = flag.Bool("keep", false, "copy a local statement into the archive bucket after importing")
		list    = flag.Bool("list", false, "list archived statements and exit")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall time limit for the import")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.NewConsole(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var archiver *archive.Store
	if cfg.ArchiveBucket != "" {
		var err error
		archiver, err = archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open statement archive")
		}
		defer archiver.Close()
	}

	if *list {
		listArchive(ctx, archiver, log)
		return
	}

	if *file == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	userID := cfg.DefaultUserID
	if *user != "" {
		userID = *user
	}

	data, source := readStatement(ctx, *file, archiver, log)

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
	} else if statement.IsPDF(data) {
		log.Fatal().Msg("PDF statements need GEMINI_API_KEY")
	}

	p := pipeline.NewStatementImportPipeline(statement.AutoExtractor{PDF: pdf}, ruleRepo, classifier, txRepo)

	log.Info().Str("source", source).Str("user_id", userID).Msg("Starting import")

	state := &pipeline.PipelineState{UserID: userID, Source: source, Data: data}
	if err := p.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Import completed: %d imported, %d duplicates, %d pending review, %d failed.\n",
		state.Result.Imported, state.Result.Duplicates, state.Result.Pending, state.Result.Failed)

	if *keep && !archive.IsURI(*file) {
		if archiver == nil {
			log.Fatal().Msg("-keep needs GCS_BUCKET")
		}
		uri, err := archiver.Upload(ctx, filepath.Base(*file), data)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to archive statement")
		}
		fmt.Printf("Archived as %s\n", uri)
	}
}

// readStatement loads the statement bytes from a local file or from the
// archive when given a gs:// URI.
func readStatement(ctx context.Context, path string, archiver *archive.Store, log zerolog.Logger) ([]byte, string) {
	if archive.IsURI(path) {
		if archiver == nil {
			log.Fatal().Msg("Importing a gs:// URI needs GCS_BUCKET")
		}
		data, err := archiver.Fetch(ctx, path)
		if err != nil {
			log.Fatal().Err(err).Str("uri", path).Msg("Failed to fetch archived statement")
		}
		return data, archive.Filename(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read statement file")
	}
	return data, filepath.Base(path)
}

func listArchive(ctx context.Context, archiver *archive.Store, log zerolog.Logger) {
	if archiver == nil {
		log.Fatal().Msg("-list needs GCS_BUCKET")
	}
	uris, err := archiver.List(ctx, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list archive")
	}
	if len(uris) == 0 {
		fmt.Println("Archive is empty.")
		return
	}
	for _, uri := range uris {
		fmt.Println(uri)
	}
}
