// Package notion pulls manually logged transactions and uploaded bank
// statements out of a Notion workspace, feeds them through the import
// pipeline, and writes assigned categories back to the source pages.
package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/pipeline"
)

const (
	// PageSize is the Notion query page size used when listing databases.
	PageSize = 100

	// StatusProcessed marks an uploads page whose statement was imported.
	StatusProcessed = "Processed"
)

// TransactionWriter persists rows that already carry a category.
type TransactionWriter interface {
	Insert(ctx context.Context, tx domain.Transaction) (uuid.UUID, error)
}

// Importer runs statement data or extracted lines through the import
// pipeline.
type Importer interface {
	Execute(ctx context.Context, state *pipeline.PipelineState) error
}

// Archiver keeps a durable copy of downloaded statements. Notion file
// URLs expire, so the archive holds the only stable copy.
type Archiver interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Config identifies the Notion databases one sync run touches.
type Config struct {
	TransactionsDB string
	UploadsDB      string // empty skips the statement pass
	SyncLogDB      string // empty skips the sync log entry
	UserID         string
}

// Report counts what one sync run did.
type Report struct {
	PDFs              int
	Rows              int
	Imported          int
	Duplicates        int
	Pending           int
	Failed            int
	CategoriesWritten int
}

func (r *Report) merge(res pipeline.ImportResult) {
	r.Imported += res.Imported
	r.Duplicates += res.Duplicates
	r.Pending += res.Pending
	r.Failed += res.Failed
}

// Syncer pulls statements and manual rows from Notion into the store.
type Syncer struct {
	notion     Service
	store      TransactionWriter
	statements Importer
	lines      Importer
	archive    Archiver
	cfg        Config
	now        func() time.Time
}

// NewSyncer creates a Syncer. archive may be nil to skip archiving.
func NewSyncer(service Service, store TransactionWriter, statements, lines Importer, archive Archiver, cfg Config) *Syncer {
	return &Syncer{
		notion:     service,
		store:      store,
		statements: statements,
		lines:      lines,
		archive:    archive,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Sync runs one full pull: uploaded statements first, then manual rows,
// then the sync-log entry.
func (s *Syncer) Sync(ctx context.Context) (Report, error) {
	log := logger.FromContext(ctx)
	var report Report

	if s.cfg.UploadsDB != "" {
		if err := s.syncUploads(ctx, &report); err != nil {
			return report, err
		}
	}
	if err := s.syncRows(ctx, &report); err != nil {
		return report, err
	}
	s.writeSyncLog(ctx, report)

	log.Info().
		Int("pdfs", report.PDFs).
		Int("rows", report.Rows).
		Int("imported", report.Imported).
		Int("duplicates", report.Duplicates).
		Int("pending", report.Pending).
		Int("failed", report.Failed).
		Int("categories_written", report.CategoriesWritten).
		Msg("notion sync completed")

	return report, nil
}

// syncUploads downloads every unprocessed statement, imports it, and
// marks the uploads page processed. Per-file failures are counted and
// do not stop the rest.
func (s *Syncer) syncUploads(ctx context.Context, report *Report) error {
	log := logger.FromContext(ctx)

	pages, err := s.queryAllPages(ctx, s.cfg.UploadsDB)
	if err != nil {
		return fmt.Errorf("querying uploads database: %w", err)
	}

	for _, page := range pages {
		upload := UploadFromPage(page)
		if upload.FileURL == "" || strings.EqualFold(upload.Status, StatusProcessed) {
			continue
		}

		data, err := s.notion.DownloadFile(ctx, upload.FileURL)
		if err != nil {
			log.Warn().Err(err).Str("title", upload.Title).Msg("failed to download statement")
			report.Failed++
			continue
		}
		report.PDFs++

		if s.archive != nil {
			if uri, err := s.archive.Upload(ctx, archiveName(upload.Title), data); err != nil {
				log.Warn().Err(err).Str("title", upload.Title).Msg("failed to archive statement")
			} else {
				log.Debug().Str("uri", uri).Msg("statement archived")
			}
		}

		state := &pipeline.PipelineState{UserID: s.cfg.UserID, Source: upload.Title, Data: data}
		if err := s.statements.Execute(ctx, state); err != nil {
			log.Warn().Err(err).Str("title", upload.Title).Msg("failed to import statement")
			report.Failed++
			continue
		}
		report.merge(state.Result)

		if _, err := s.notion.UpdatePage(ctx, upload.PageID, UploadStatusProperties(StatusProcessed)); err != nil {
			log.Warn().Err(err).Str("page_id", upload.PageID).Msg("failed to mark upload processed")
		}
	}
	return nil
}

// syncRows imports the manual transaction rows. Rows that already carry
// a category are stored as user-confirmed; the rest go through the
// pipeline and get their assigned category written back.
func (s *Syncer) syncRows(ctx context.Context, report *Report) error {
	log := logger.FromContext(ctx)

	pages, err := s.queryAllPages(ctx, s.cfg.TransactionsDB)
	if err != nil {
		return fmt.Errorf("querying transactions database: %w", err)
	}

	var (
		lines   []domain.RawLine
		pageIDs []string
	)
	for _, page := range pages {
		row, ok := RowFromPage(page)
		if !ok {
			log.Warn().Str("page_id", string(page.ID)).Msg("skipped malformed transaction row")
			continue
		}
		report.Rows++

		if row.Category != "" {
			s.insertCategorized(ctx, row, report)
			continue
		}
		lines = append(lines, row.Line)
		pageIDs = append(pageIDs, row.PageID)
	}

	if len(lines) == 0 {
		return nil
	}

	state := &pipeline.PipelineState{UserID: s.cfg.UserID, Source: "notion", Lines: lines}
	if err := s.lines.Execute(ctx, state); err != nil {
		return fmt.Errorf("importing notion rows: %w", err)
	}
	report.merge(state.Result)

	for i, tx := range state.Transactions {
		if tx.Category == domain.CategoryUncategorized {
			continue
		}
		if _, err := s.notion.UpdatePage(ctx, pageIDs[i], CategoryProperties(tx.Category)); err != nil {
			log.Warn().Err(err).Str("page_id", pageIDs[i]).Msg("failed to write category back")
			continue
		}
		report.CategoriesWritten++
	}
	return nil
}

func (s *Syncer) insertCategorized(ctx context.Context, row Row, report *Report) {
	tx := domain.NewTransaction(s.cfg.UserID, row.Line.Date, row.Line.Description, row.Line.Amount)
	tx.Category = canonicalCategory(row.Category)
	tx.BudgetType = domain.BudgetTypeOf(tx.Category)
	tx.Status = domain.StatusUser

	if _, err := s.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			report.Duplicates++
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("description", tx.Description).
			Msg("failed to store notion row")
		report.Failed++
		return
	}
	report.Imported++
}

func (s *Syncer) writeSyncLog(ctx context.Context, report Report) {
	if s.cfg.SyncLogDB == "" {
		return
	}
	now := s.now()
	details := fmt.Sprintf("Synced %d transactions and %d PDFs at %s",
		report.Imported, report.PDFs, now.Format("2006-01-02 15:04:05"))
	if _, err := s.notion.CreatePage(ctx, s.cfg.SyncLogDB, SyncLogProperties(now, details)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("failed to write sync log entry")
	}
}

// queryAllPages queries all pages from a Notion database. Pagination is
// handled automatically.
func (s *Syncer) queryAllPages(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: PageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// canonicalCategory fixes the casing of known categories. Unknown names
// pass through so a custom Notion select value survives the import.
func canonicalCategory(name string) string {
	if c, ok := domain.CanonicalCategory(name); ok {
		return c
	}
	return name
}

func archiveName(title string) string {
	name := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	if name == "" {
		name = "statement"
	}
	return name + ".pdf"
}
