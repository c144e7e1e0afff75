// Package handlers implements the HTTP API: summaries and natural-language
// queries, manual transaction entry, keyword rules, the Notion webhook, and
// job inspection.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/api/middleware"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/jobs"
	"github.com/vchukka/finsense/internal/notion"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/summary"
)

// TransactionStore is the slice of the transaction store the API uses.
type TransactionStore interface {
	Query(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, fields domain.Fields) error
}

// RuleStore manages keyword rules.
type RuleStore interface {
	GlobalRules(ctx context.Context) ([]domain.KeywordRule, error)
	UserRules(ctx context.Context, userID string) ([]domain.KeywordRule, error)
	AddUserRule(ctx context.Context, userID, keyword, category string) error
}

// Importer runs candidate lines through the import pipeline.
type Importer interface {
	Execute(ctx context.Context, state *pipeline.PipelineState) error
}

// Summaries is the read side: aggregation and query resolution.
type Summaries interface {
	Spending(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error)
	Budget(ctx context.Context, userID, month string) (summary.BudgetReport, error)
	Income(ctx context.Context, userID, month string) (summary.IncomeSummary, error)
	ResolveFilter(ctx context.Context, text string, now time.Time) domain.Filter
}

// transactionJSON is the wire shape of one transaction. Amounts go out as
// strings so clients never round them through float64.
type transactionJSON struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Month       string `json:"month"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	BudgetType  string `json:"budget_type"`
	Status      string `json:"status"`
}

func toTransactionJSON(tx domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID.String(),
		Date:        tx.Date.Format("2006-01-02"),
		Month:       tx.Month,
		Description: tx.Description,
		Amount:      tx.Amount.StringFixed(2),
		Category:    tx.Category,
		BudgetType:  string(tx.BudgetType),
		Status:      string(tx.Status),
	}
}

// userFrom resolves the acting user: an explicit user_id query parameter,
// else the configured default.
func userFrom(r *http.Request, fallback string) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return fallback
}

// SyncHandler receives Notion webhook events and turns them into sync jobs.
type SyncHandler struct {
	publisher jobs.Publisher
	userID    string
	log       zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(publisher jobs.Publisher, userID string, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		publisher: publisher,
		userID:    userID,
		log:       log,
	}
}

// HandleWebhook handles POST /webhook/notion.
// The signature middleware has already verified the body when a webhook
// secret is configured. Processing is asynchronous: the handler only
// enqueues a sync job and acknowledges.
func (h *SyncHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload notion.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Subscription challenge: acknowledge and surface the token so the
	// operator can finish the setup in Notion. No sync to run.
	if payload.VerificationToken != "" {
		h.log.Info().
			Str("verification_token", payload.VerificationToken).
			Msg("Notion webhook verification received")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	job := &jobs.SyncJob{
		Type:    jobs.JobTypeSyncNotion,
		Trigger: jobs.TriggerWebhook,
		UserID:  h.userID,
	}
	for _, event := range payload.Events {
		h.log.Info().
			Str("event_type", event.Type).
			Str("resource_id", event.Resource.ID).
			Msg("Notion webhook event received")
		if job.PageID == "" {
			job.PageID = event.Resource.ID
		}
	}

	if err := h.publisher.PublishSync(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"job_id":  job.JobID,
		"user_id": job.UserID,
	})
}

// TriggerSync handles POST /api/v1/sync, the manual counterpart of the
// webhook.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	job := &jobs.SyncJob{
		Type:    jobs.JobTypeSyncNotion,
		Trigger: jobs.TriggerManual,
		UserID:  userFrom(r, h.userID),
	}

	if err := h.publisher.PublishSync(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job_id": job.JobID,
	})
}

// SummaryHandler serves aggregated views and natural-language queries.
type SummaryHandler struct {
	svc    Summaries
	userID string
	log    zerolog.Logger
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(svc Summaries, userID string, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{
		svc:    svc,
		userID: userID,
		log:    log,
	}
}

// GetSummary handles GET /api/v1/summary.
// view selects spending (default), budget, or income; month defaults to the
// current month.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	userID := userFrom(r, h.userID)

	month := query.Get("month")
	if month == "" {
		month = domain.MonthOf(time.Now().UTC())
	} else if _, err := domain.ParseMonth(month); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
		return
	}

	switch view := query.Get("view"); view {
	case "budget":
		report, err := h.svc.Budget(ctx, userID, month)
		if err != nil {
			if errors.Is(err, domain.ErrProfileNotFound) {
				middleware.WriteError(w, http.StatusNotFound, "No profile for user, set monthly income first")
				return
			}
			h.log.Error().Err(err).Msg("Failed to build budget report")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to build budget report")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"report":  report,
			"message": summary.RenderBudget(report),
		})

	case "income":
		inc, err := h.svc.Income(ctx, userID, month)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to build income summary")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to build income summary")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": inc,
			"message": summary.RenderIncome(inc),
		})

	case "", "spending":
		f := domain.Filter{Month: month}
		if category := query.Get("category"); category != "" {
			canonical, ok := domain.CanonicalCategory(category)
			if !ok {
				middleware.WriteError(w, http.StatusBadRequest, "Unknown category "+category)
				return
			}
			f.Category = canonical
		}
		sp, err := h.svc.Spending(ctx, userID, f)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to build spending summary")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to build spending summary")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": sp,
			"message": summary.RenderSpending(sp),
		})

	default:
		middleware.WriteError(w, http.StatusBadRequest, "Unknown view, expected spending, budget, or income")
	}
}

// PostQuery handles POST /api/v1/query.
// The free-text question is resolved to a filter and answered with a
// spending summary.
func (h *SummaryHandler) PostQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	userID := userFrom(r, h.userID)

	f := h.svc.ResolveFilter(ctx, req.Text, time.Now().UTC())
	sp, err := h.svc.Spending(ctx, userID, f)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to answer query")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to answer query")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"filter": map[string]string{
			"month":    f.Month,
			"category": f.Category,
		},
		"summary": sp,
		"message": summary.RenderSpending(sp),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store    TransactionStore
	importer Importer
	userID   string
	log      zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store TransactionStore, importer Importer, userID string, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store:    store,
		importer: importer,
		userID:   userID,
		log:      log,
	}
}

// ListTransactions handles GET /api/v1/transactions.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var f domain.Filter
	if month := query.Get("month"); month != "" {
		if _, err := domain.ParseMonth(month); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
			return
		}
		f.Month = month
	}
	if category := query.Get("category"); category != "" {
		canonical, ok := domain.CanonicalCategory(category)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown category "+category)
			return
		}
		f.Category = canonical
	}
	if status := query.Get("status"); status != "" {
		f.Status = domain.Status(status)
	}

	rows, err := h.store.Query(ctx, userFrom(r, h.userID), f)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	out := make([]transactionJSON, 0, len(rows))
	for _, tx := range rows {
		out = append(out, toTransactionJSON(tx))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": out,
		"count":        len(out),
	})
}

// CreateTransaction handles POST /api/v1/transactions.
// The entry runs through the same categorization pipeline as statement
// imports, so keyword rules and the model fallback apply.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string      `json:"date"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil || amount.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be a non-zero number")
		return
	}

	state := &pipeline.PipelineState{
		UserID: userFrom(r, h.userID),
		Source: "api",
		Lines: []domain.RawLine{
			{Date: date, Description: description, Amount: amount},
		},
	}
	if err := h.importer.Execute(r.Context(), state); err != nil {
		h.log.Error().Err(err).Msg("Failed to import transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to import transaction")
		return
	}
	if state.Result.Duplicates > 0 {
		middleware.WriteError(w, http.StatusConflict, "Transaction already recorded")
		return
	}
	if state.Result.Imported == 0 || len(state.Transactions) == 0 {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": toTransactionJSON(state.Transactions[0]),
		"pending":     state.Result.Pending > 0,
	})
}

// UpdateCategory handles POST /api/v1/transactions/{id}/category.
// A user override is final: the row moves to user status and leaves the
// review queue.
func (h *TransactionsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	canonical, ok := domain.CanonicalCategory(req.Category)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest,
			"Unknown category, valid categories are: "+strings.Join(domain.Categories(), ", "))
		return
	}

	budgetType := domain.BudgetTypeOf(canonical)
	status := domain.StatusUser
	fields := domain.Fields{
		Category:   &canonical,
		BudgetType: &budgetType,
		Status:     &status,
	}

	if err := h.store.Update(r.Context(), id, fields); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", idStr).Msg("Failed to update category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":          id.String(),
		"category":    canonical,
		"budget_type": string(budgetType),
		"status":      string(status),
	})
}

// KeywordsHandler handles keyword rule endpoints.
type KeywordsHandler struct {
	rules  RuleStore
	userID string
	log    zerolog.Logger
}

// NewKeywordsHandler creates a new keywords handler.
func NewKeywordsHandler(rules RuleStore, userID string, log zerolog.Logger) *KeywordsHandler {
	return &KeywordsHandler{
		rules:  rules,
		userID: userID,
		log:    log,
	}
}

// ruleJSON is the wire shape of one keyword rule.
type ruleJSON struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Scope    string `json:"scope"`
	Position int    `json:"position"`
}

func toRuleJSON(rules []domain.KeywordRule) []ruleJSON {
	out := make([]ruleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleJSON{
			Keyword:  rule.Keyword,
			Category: rule.Category,
			Scope:    string(rule.Scope),
			Position: rule.Position,
		})
	}
	return out
}

// ListKeywords handles GET /api/v1/keywords.
func (h *KeywordsHandler) ListKeywords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFrom(r, h.userID)

	userRules, err := h.rules.UserRules(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list user rules")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list keyword rules")
		return
	}
	globalRules, err := h.rules.GlobalRules(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list global rules")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list keyword rules")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":   toRuleJSON(userRules),
		"global": toRuleJSON(globalRules),
		"count":  len(userRules) + len(globalRules),
	})
}

// AddKeyword handles POST /api/v1/keywords.
func (h *KeywordsHandler) AddKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword  string `json:"keyword"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		middleware.WriteError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	canonical, ok := domain.CanonicalCategory(req.Category)
	if !ok || canonical == domain.CategoryUncategorized {
		middleware.WriteError(w, http.StatusBadRequest,
			"Unknown category, valid categories are: "+strings.Join(domain.Categories(), ", "))
		return
	}

	userID := userFrom(r, h.userID)
	if err := h.rules.AddUserRule(r.Context(), userID, keyword, canonical); err != nil {
		h.log.Error().Err(err).Msg("Failed to add keyword rule")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add keyword rule")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"keyword":  strings.ToLower(keyword),
		"category": canonical,
		"scope":    string(domain.ScopeUser),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/v1/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
